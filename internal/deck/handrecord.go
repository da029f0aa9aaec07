package deck

import "strings"

// HandRecord holds the cards of one hand: the private cards dealt to each
// position per round and the public cards revealed per round. It is immutable
// once dealt; queries for a position/round that received no cards return the
// empty string so callers can build partial-disclosure views.
type HandRecord struct {
	private [][][]Card // [position][round]
	public  [][]Card   // [round]
}

// NewHandRecord creates an empty record for numSeats positions and numRounds
// rounds. Used directly only by tests that inject a fixed hand.
func NewHandRecord(numSeats, numRounds int) *HandRecord {
	private := make([][][]Card, numSeats)
	for i := range private {
		private[i] = make([][]Card, numRounds)
	}
	return &HandRecord{
		private: private,
		public:  make([][]Card, numRounds),
	}
}

// SetPrivate assigns the private cards for a position and round. Test hook.
func (h *HandRecord) SetPrivate(position, round int, cards []Card) {
	h.private[position][round] = cards
}

// SetPublic assigns the public cards for a round. Test hook.
func (h *HandRecord) SetPublic(round int, cards []Card) {
	h.public[round] = cards
}

// Seats returns the number of positions the record was dealt for.
func (h *HandRecord) Seats() int {
	return len(h.private)
}

// Rounds returns the number of rounds the record was dealt for.
func (h *HandRecord) Rounds() int {
	return len(h.public)
}

// PrivateCards returns the wire form of the private cards dealt to position
// in round, or "" when none were dealt.
func (h *HandRecord) PrivateCards(position, round int) string {
	if position < 0 || position >= len(h.private) {
		return ""
	}
	if round < 0 || round >= len(h.private[position]) {
		return ""
	}
	return CardsString(h.private[position][round])
}

// PublicCards returns the wire form of the public cards revealed in round,
// or "" when none were revealed.
func (h *HandRecord) PublicCards(round int) string {
	if round < 0 || round >= len(h.public) {
		return ""
	}
	return CardsString(h.public[round])
}

// EvaluationCards returns every card the position can use at showdown: all of
// its private cards across rounds plus all public cards.
func (h *HandRecord) EvaluationCards(position int) []Card {
	var cards []Card
	if position >= 0 && position < len(h.private) {
		for _, round := range h.private[position] {
			cards = append(cards, round...)
		}
	}
	for _, round := range h.public {
		cards = append(cards, round...)
	}
	return cards
}

// String renders the full deal for the match log: per-position private cards
// separated by "|", then public cards per round prefixed with "/".
func (h *HandRecord) String() string {
	var b strings.Builder
	b.WriteString("#HAND:")
	for pos := range h.private {
		if pos > 0 {
			b.WriteString("|")
		}
		for round := range h.private[pos] {
			b.WriteString(CardsString(h.private[pos][round]))
		}
	}
	for round := range h.public {
		if len(h.public[round]) > 0 {
			b.WriteString("/")
			b.WriteString(CardsString(h.public[round]))
		}
	}
	return b.String()
}
