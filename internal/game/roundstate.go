package game

import "strings"

// RoundState is the mutable betting state of one hand. A fresh RoundState is
// created for every hand; rounds within the hand advance in place.
type RoundState struct {
	Button     int // position that acts last
	Round      int
	CurrentBet int // highest per-seat commitment this round
	MinRaise   int // smallest legal raise increment
	NumBets    int // bets and raises made this round
	Pot        int
	ActionLog  string // one character per action, "/" between rounds
	HandOver   bool
}

// NewRoundState starts a hand with the button on the given position.
func NewRoundState(button int) *RoundState {
	return &RoundState{Button: button}
}

// MakeBet accounts for chips a seat just paid. prevBet is the seat's round
// commitment before paying; a new high commitment raises the current bet.
func (rs *RoundState) MakeBet(paid, prevBet int) {
	rs.Pot += paid
	total := prevBet + paid
	if total > rs.CurrentBet {
		if total-rs.CurrentBet > rs.MinRaise {
			rs.MinRaise = total - rs.CurrentBet
		}
		rs.CurrentBet = total
		rs.NumBets++
	}
}

// Append records one action token in the log.
func (rs *RoundState) Append(tok string) {
	rs.ActionLog += tok
}

// NextRound advances betting to the next round.
func (rs *RoundState) NextRound() {
	rs.Round++
	rs.CurrentBet = 0
	rs.NumBets = 0
	rs.MinRaise = 0
	rs.ActionLog += "/"
}

// Take removes paid-out chips from the pot.
func (rs *RoundState) Take(amount int) {
	rs.Pot -= amount
}

// RoundLog returns the action log for the current round only.
func (rs *RoundState) RoundLog() string {
	parts := strings.Split(rs.ActionLog, "/")
	return parts[len(parts)-1]
}
