package game

import (
	"fmt"

	"github.com/openfelt/feltserver/internal/deck"
)

// SeatState is the persistent part of a Seat.
type SeatState struct {
	Name      string
	Kind      string
	BuyIn     int
	SeatIndex int
	Stack     int
	Score     int
	Position  int
}

// RoundSnapshot is the betting state of the hand in flight when the engine
// stopped. It is informational; a resumed engine always starts a fresh hand.
type RoundSnapshot struct {
	Button     int
	Round      int
	CurrentBet int
	MinRaise   int
	NumBets    int
	Pot        int
	ActionLog  string
	HandOver   bool
}

// EngineState is everything needed to rebuild an equivalent engine: rules,
// seats, and the deck reduced to its seed and deal counter. When Shuffle is
// false the hand in flight was not settled and is replayed on resume.
type EngineState struct {
	Name        string
	Game        GameDefinition
	Seats       []SeatState
	Seed        int64
	HandsDealt  int
	HandsPlayed int
	CurrentSeat int
	Shuffle     bool
	Round       *RoundSnapshot
}

// State captures the engine. Only safe once Done is closed or before Run.
func (e *Engine) State() *EngineState {
	st := &EngineState{
		Name:        e.name,
		Game:        *e.def,
		Seats:       make([]SeatState, len(e.seats)),
		Seed:        e.deck.Seed(),
		HandsDealt:  e.deck.HandsDealt(),
		HandsPlayed: e.handsPlayed,
		CurrentSeat: e.current,
		Shuffle:     e.shuffle,
	}
	for i, s := range e.seats {
		st.Seats[i] = SeatState{
			Name:      s.Name,
			Kind:      s.Kind,
			BuyIn:     s.BuyIn,
			SeatIndex: s.SeatIndex,
			Stack:     s.Stack,
			Score:     s.Score,
			Position:  s.Position,
		}
	}
	if e.round != nil {
		st.Round = &RoundSnapshot{
			Button:     e.round.Button,
			Round:      e.round.Round,
			CurrentBet: e.round.CurrentBet,
			MinRaise:   e.round.MinRaise,
			NumBets:    e.round.NumBets,
			Pot:        e.round.Pot,
			ActionLog:  e.round.ActionLog,
			HandOver:   e.round.HandOver,
		}
	}
	return st
}

// NewFromState rebuilds an engine from captured state. The deck is restored
// by replaying its deals from the seed, so the next hand dealt is the same
// one the original engine would have dealt. Seats come back without
// channels; bind them with RebindSeat before Run.
func NewFromState(st *EngineState, opts ...Option) (*Engine, error) {
	def := st.Game
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if len(st.Seats) < def.MinPlayers || len(st.Seats) > def.MaxPlayers {
		return nil, fmt.Errorf("game %s: %d seats, want %d to %d", st.Name, len(st.Seats), def.MinPlayers, def.MaxPlayers)
	}
	seats := make([]*Seat, len(st.Seats))
	for i, ss := range st.Seats {
		seats[i] = &Seat{
			Name:      ss.Name,
			Kind:      ss.Kind,
			BuyIn:     ss.BuyIn,
			SeatIndex: ss.SeatIndex,
			Stack:     ss.Stack,
			Score:     ss.Score,
			Position:  ss.Position,
			HandRank:  -1,
		}
	}
	e, err := New(st.Name, &def, seats, st.Seed, opts...)
	if err != nil {
		return nil, err
	}
	e.handsPlayed = st.HandsPlayed
	e.current = st.CurrentSeat
	replay := !st.Shuffle && st.HandsDealt > 0
	skip := st.HandsDealt
	if replay {
		skip--
	}
	for i := 0; i < skip; i++ {
		e.deck.Skip(len(seats), def.NumRounds, def.PrivateCards, def.PublicCards)
	}
	if replay {
		e.hand = e.deck.DealHand(len(seats), def.NumRounds, def.PrivateCards, def.PublicCards)
		e.shuffle = false
	}
	return e, nil
}
