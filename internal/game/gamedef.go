// Package game implements the betting engine: the state machine that drives
// a hand of poker from deal to settlement, one action at a time, over an
// abstract per-seat channel.
package game

import "fmt"

// GameDefinition describes the rules of one game. It is loaded once from
// configuration and immutable thereafter.
type GameDefinition struct {
	Name          string `json:"name"`
	NumRounds     int    `json:"num_rounds"`
	PrivateCards  []int  `json:"private_cards"`   // dealt per seat, per round
	PublicCards   []int  `json:"public_cards"`    // community cards per round
	Bets          []int  `json:"bets"`            // fixed bet size per round (limit play)
	BetsPerRound  []int  `json:"bets_per_round"`  // raise cap per round
	Blinds        []int  `json:"blinds"`          // posted in order on round 0
	NoLimit       bool   `json:"no_limit"`
	ReverseBlinds bool   `json:"reverse_blinds"` // two-player blind order swap
	MinPlayers    int    `json:"min_players"`
	MaxPlayers    int    `json:"max_players"`
	NumHands      int    `json:"num_hands"`  // 0 plays forever
	StackSize     int    `json:"stack_size"` // >0 overrides buy-ins (Doyle's game)
	SurveyURL     string `json:"survey_url,omitempty"`
}

// Blind returns the i-th blind amount.
func (g *GameDefinition) Blind(i int) int {
	return g.Blinds[i]
}

// Bet returns the fixed bet size for a round, 0 when none is configured.
func (g *GameDefinition) Bet(round int) int {
	if round < 0 || round >= len(g.Bets) {
		return 0
	}
	return g.Bets[round]
}

// RaiseCap returns the number of bets allowed in a round.
func (g *GameDefinition) RaiseCap(round int) int {
	if round < 0 || round >= len(g.BetsPerRound) {
		return 0
	}
	return g.BetsPerRound[round]
}

// Unbounded reports whether the game has no hand limit.
func (g *GameDefinition) Unbounded() bool {
	return g.NumHands <= 0
}

// DoylesGame reports whether every hand starts from a fixed stack.
func (g *GameDefinition) DoylesGame() bool {
	return g.StackSize > 0
}

// Validate checks that the definition is playable.
func (g *GameDefinition) Validate() error {
	if g.NumRounds <= 0 {
		return fmt.Errorf("game %s: at least one betting round required", g.Name)
	}
	if len(g.PrivateCards) != g.NumRounds || len(g.PublicCards) != g.NumRounds {
		return fmt.Errorf("game %s: private_cards and public_cards must list all %d rounds", g.Name, g.NumRounds)
	}
	if len(g.BetsPerRound) != g.NumRounds {
		return fmt.Errorf("game %s: bets_per_round must list all %d rounds", g.Name, g.NumRounds)
	}
	if !g.NoLimit && len(g.Bets) != g.NumRounds {
		return fmt.Errorf("game %s: bets must list all %d rounds for limit play", g.Name, g.NumRounds)
	}
	if len(g.Blinds) == 0 {
		return fmt.Errorf("game %s: at least one blind required", g.Name)
	}
	if g.MinPlayers < 2 {
		return fmt.Errorf("game %s: min_players must be at least 2", g.Name)
	}
	if g.MaxPlayers < g.MinPlayers {
		return fmt.Errorf("game %s: max_players must be at least min_players", g.Name)
	}
	if len(g.Blinds) > g.MinPlayers {
		return fmt.Errorf("game %s: more blinds than players", g.Name)
	}
	if g.ReverseBlinds && g.MaxPlayers != 2 {
		return fmt.Errorf("game %s: reverse_blinds only applies to two-player games", g.Name)
	}
	return nil
}

// HoldemDefinition returns the standard two-player limit hold'em definition
// used as the default game and by tests.
func HoldemDefinition() *GameDefinition {
	return &GameDefinition{
		Name:          "holdem",
		NumRounds:     4,
		PrivateCards:  []int{2, 0, 0, 0},
		PublicCards:   []int{0, 3, 1, 1},
		Bets:          []int{2, 2, 4, 4},
		BetsPerRound:  []int{3, 4, 4, 4},
		Blinds:        []int{1, 2},
		ReverseBlinds: true,
		MinPlayers:    2,
		MaxPlayers:    2,
		NumHands:      1000,
	}
}
