// Package snapshot persists engine state between server runs. The on-disk
// format is versioned JSON with its own schema, decoupled from the game
// package's in-memory types so old snapshots stay readable as the engine
// evolves.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/openfelt/feltserver/internal/fileutil"
	"github.com/openfelt/feltserver/internal/game"
)

// Version is the current snapshot schema version. Loaders reject files
// written by a different version.
const Version = 1

// Snapshot is the root of a snapshot file.
type Snapshot struct {
	Version int          `json:"version"`
	SavedAt time.Time    `json:"saved_at"`
	Engine  engineRecord `json:"engine"`
}

type engineRecord struct {
	Name        string       `json:"name"`
	Game        gameRecord   `json:"game"`
	Seats       []seatRecord `json:"seats"`
	Seed        int64        `json:"seed"`
	HandsDealt  int          `json:"hands_dealt"`
	HandsPlayed int          `json:"hands_played"`
	CurrentSeat int          `json:"current_seat"`
	Shuffle     bool         `json:"shuffle"`
	Round       *roundRecord `json:"round,omitempty"`
}

type gameRecord struct {
	Name          string `json:"name"`
	NumRounds     int    `json:"num_rounds"`
	PrivateCards  []int  `json:"private_cards"`
	PublicCards   []int  `json:"public_cards"`
	Bets          []int  `json:"bets,omitempty"`
	BetsPerRound  []int  `json:"bets_per_round"`
	Blinds        []int  `json:"blinds"`
	NoLimit       bool   `json:"no_limit,omitempty"`
	ReverseBlinds bool   `json:"reverse_blinds,omitempty"`
	MinPlayers    int    `json:"min_players"`
	MaxPlayers    int    `json:"max_players"`
	NumHands      int    `json:"num_hands,omitempty"`
	StackSize     int    `json:"stack_size,omitempty"`
	SurveyURL     string `json:"survey_url,omitempty"`
}

type seatRecord struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	BuyIn     int    `json:"buy_in"`
	SeatIndex int    `json:"seat"`
	Stack     int    `json:"stack"`
	Score     int    `json:"score"`
	Position  int    `json:"position"`
}

type roundRecord struct {
	Button     int    `json:"button"`
	Round      int    `json:"round"`
	CurrentBet int    `json:"current_bet"`
	MinRaise   int    `json:"min_raise"`
	NumBets    int    `json:"num_bets"`
	Pot        int    `json:"pot"`
	ActionLog  string `json:"action_log"`
	HandOver   bool   `json:"hand_over"`
}

// Capture converts engine state into a snapshot stamped with the given time.
func Capture(st *game.EngineState, now time.Time) *Snapshot {
	s := &Snapshot{
		Version: Version,
		SavedAt: now,
		Engine: engineRecord{
			Name:        st.Name,
			Game:        gameRecord(st.Game),
			Seats:       make([]seatRecord, len(st.Seats)),
			Seed:        st.Seed,
			HandsDealt:  st.HandsDealt,
			HandsPlayed: st.HandsPlayed,
			CurrentSeat: st.CurrentSeat,
			Shuffle:     st.Shuffle,
		},
	}
	for i, seat := range st.Seats {
		s.Engine.Seats[i] = seatRecord(seat)
	}
	if st.Round != nil {
		r := roundRecord(*st.Round)
		s.Engine.Round = &r
	}
	return s
}

// EngineState converts the snapshot back into engine state.
func (s *Snapshot) EngineState() *game.EngineState {
	st := &game.EngineState{
		Name:        s.Engine.Name,
		Game:        game.GameDefinition(s.Engine.Game),
		Seats:       make([]game.SeatState, len(s.Engine.Seats)),
		Seed:        s.Engine.Seed,
		HandsDealt:  s.Engine.HandsDealt,
		HandsPlayed: s.Engine.HandsPlayed,
		CurrentSeat: s.Engine.CurrentSeat,
		Shuffle:     s.Engine.Shuffle,
	}
	for i, seat := range s.Engine.Seats {
		st.Seats[i] = game.SeatState(seat)
	}
	if s.Engine.Round != nil {
		r := game.RoundSnapshot(*s.Engine.Round)
		st.Round = &r
	}
	return st
}

// Save writes a snapshot atomically, so a crash mid-write never corrupts an
// existing snapshot.
func Save(path string, s *Snapshot) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing snapshot %s: %w", path, err)
	}
	return nil
}

// Load reads and validates a snapshot file.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", path, err)
	}
	if s.Version != Version {
		return nil, fmt.Errorf("snapshot %s: unsupported version %d, want %d", path, s.Version, Version)
	}
	return &s, nil
}
