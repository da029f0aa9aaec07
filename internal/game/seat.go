package game

import "fmt"

// Seat channel kinds, fixed at admission and checked again on rebind.
const (
	KindSocket = "socket"
	KindBot    = "bot"
	KindGUI    = "gui"
)

// Actor is the engine's only view of a connected player. Implementations
// live in the session package; the engine never touches a socket directly.
type Actor interface {
	// NextAction blocks until the player produces one protocol line.
	NextAction() (string, error)
	// Deliver sends one protocol line to the player.
	Deliver(line string) error
	// Close releases the underlying transport.
	Close() error
}

// Seat is one player's chips and per-hand betting state.
type Seat struct {
	Name      string
	Kind      string
	BuyIn     int
	SeatIndex int // physical seat, fixed for the session
	Stack     int
	Score     int // cumulative net across hands

	// Per-hand state, cleared by ResetHand.
	Position   int // dealing order, rotates every hand
	CurrentBet int // committed this round
	Committed  int // committed this hand
	Folded     bool
	AllIn      bool
	Acted      bool
	HandRank   int
	HandName   string
	BestFive   string

	actor Actor
}

// NewSeat creates a seat with its stack set to the buy-in.
func NewSeat(name, kind string, buyIn, seatIndex int, actor Actor) *Seat {
	return &Seat{
		Name:      name,
		Kind:      kind,
		BuyIn:     buyIn,
		SeatIndex: seatIndex,
		Stack:     buyIn,
		Position:  seatIndex,
		HandRank:  -1,
		actor:     actor,
	}
}

// Actor returns the channel bound to this seat.
func (s *Seat) Actor() Actor { return s.actor }

// Bind attaches a new channel, replacing any previous one.
func (s *Seat) Bind(a Actor) { s.actor = a }

// ResetHand clears per-hand state. The stack carries over; chips committed
// to an unsettled pot are not restored.
func (s *Seat) ResetHand() {
	s.CurrentBet = 0
	s.Committed = 0
	s.Folded = false
	s.AllIn = false
	s.Acted = false
	s.HandRank = -1
	s.HandName = ""
	s.BestFive = ""
}

// ResetRound clears per-round state when betting moves to the next round.
func (s *Seat) ResetRound() {
	s.CurrentBet = 0
	s.Acted = false
}

// PostBlind commits a forced bet. Blinds do not count as acting, so the
// poster keeps the option to raise when action returns.
func (s *Seat) PostBlind(amount int) int {
	paid := min(amount, s.Stack)
	s.Stack -= paid
	s.CurrentBet += paid
	s.Committed += paid
	if s.Stack == 0 {
		s.AllIn = true
	}
	return paid
}

// Call matches the current bet, going all in when the stack is short.
func (s *Seat) Call(currentBet int) int {
	paid := min(currentBet-s.CurrentBet, s.Stack)
	if paid < 0 {
		paid = 0
	}
	s.Stack -= paid
	s.CurrentBet += paid
	s.Committed += paid
	s.Acted = true
	if s.Stack == 0 {
		s.AllIn = true
	}
	return paid
}

// Bet puts additional chips in beyond the seat's current round bet.
func (s *Seat) Bet(amount int) int {
	paid := min(amount, s.Stack)
	s.Stack -= paid
	s.CurrentBet += paid
	s.Committed += paid
	s.Acted = true
	if s.Stack == 0 {
		s.AllIn = true
	}
	return paid
}

// Fold takes the seat out of the hand. Committed chips stay in the pot.
func (s *Seat) Fold() {
	s.Folded = true
	s.Acted = true
}

// Payout returns won or refunded chips to the stack.
func (s *Seat) Payout(amount int) {
	s.Stack += amount
}

// CanAct reports whether the seat still takes turns this hand.
func (s *Seat) CanAct() bool {
	return !s.Folded && !s.AllIn
}

func (s *Seat) String() string {
	return fmt.Sprintf("%s:%d:%d", s.Name, s.SeatIndex, s.Stack)
}
