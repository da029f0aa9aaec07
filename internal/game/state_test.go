package game

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
)

func playCallDownHand(t *testing.T, e *Engine) {
	t.Helper()
	for _, s := range e.seats {
		s.Bind(&scriptedActor{script: []string{"c", "c", "c", "c", "c"}})
	}
	e.playHand()
}

func TestStateRoundTripResumesDeck(t *testing.T) {
	alice := NewSeat("alice", KindSocket, 100, 0, nil)
	bob := NewSeat("bob", KindSocket, 100, 1, nil)
	e, err := New("test", HoldemDefinition(), []*Seat{alice, bob}, 42,
		WithLogger(log.New(io.Discard)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	playCallDownHand(t, e)

	st := e.State()
	if st.Seed != 42 {
		t.Errorf("seed = %d, want 42", st.Seed)
	}
	if st.HandsPlayed != 1 || st.HandsDealt != 1 {
		t.Errorf("counters = played %d dealt %d, want 1/1", st.HandsPlayed, st.HandsDealt)
	}
	if !st.Shuffle {
		t.Error("settled hand should resume with a fresh deal")
	}

	restored, err := NewFromState(st, WithLogger(log.New(io.Discard)))
	if err != nil {
		t.Fatalf("NewFromState: %v", err)
	}
	for i, s := range restored.seats {
		orig := e.seats[i]
		if s.Name != orig.Name || s.Stack != orig.Stack || s.Score != orig.Score || s.Position != orig.Position {
			t.Errorf("seat %d = %+v, want %+v", i, s, orig)
		}
		if s.Actor() != nil {
			t.Errorf("restored seat %s should start unbound", s.Name)
		}
	}

	// The next hand dealt from the restored deck matches the original
	// game's continuation.
	playCallDownHand(t, e)
	playCallDownHand(t, restored)
	if restored.hand.String() != e.hand.String() {
		t.Errorf("resumed deal diverged:\n%s\n%s", restored.hand, e.hand)
	}
}

func TestNewFromStateRejectsBadDefinition(t *testing.T) {
	alice := NewSeat("alice", KindSocket, 100, 0, nil)
	bob := NewSeat("bob", KindSocket, 100, 1, nil)
	e, err := New("test", HoldemDefinition(), []*Seat{alice, bob}, 7,
		WithLogger(log.New(io.Discard)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	st := e.State()
	st.Game.NumRounds = 0
	if _, err := NewFromState(st); err == nil {
		t.Fatal("expected error for invalid game definition")
	}
}
