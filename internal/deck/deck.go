package deck

import (
	rand "math/rand/v2"

	"github.com/openfelt/feltserver/internal/randutil"
)

// Deck generates hands as seeded pseudo-random permutations of a 52-card
// pack. Two decks constructed from the same seed deal the identical sequence
// of hands, which is the basis for replay and recovery-by-seed.
type Deck struct {
	seed  int64
	rng   *rand.Rand
	dealt int
}

// New creates a deck whose entire deal sequence is determined by seed.
func New(seed int64) *Deck {
	return &Deck{seed: seed, rng: randutil.New(seed)}
}

// Seed returns the seed the deck was constructed with.
func (d *Deck) Seed() int64 {
	return d.seed
}

// HandsDealt returns how many hands have been drawn from this deck.
func (d *Deck) HandsDealt() int {
	return d.dealt
}

// DealHand draws one hand: for every round, privatePerRound[r] hole cards for
// each of numSeats positions followed by publicPerRound[r] community cards.
// Each hand starts from a fresh permutation of the pack.
func (d *Deck) DealHand(numSeats, numRounds int, privatePerRound, publicPerRound []int) *HandRecord {
	pack := d.shuffle()
	next := 0
	draw := func(n int) []Card {
		cards := pack[next : next+n]
		next += n
		return cards
	}

	hr := NewHandRecord(numSeats, numRounds)
	for r := 0; r < numRounds; r++ {
		for pos := 0; pos < numSeats; pos++ {
			if n := perRound(privatePerRound, r); n > 0 {
				hr.private[pos][r] = draw(n)
			}
		}
		if n := perRound(publicPerRound, r); n > 0 {
			hr.public[r] = draw(n)
		}
	}
	d.dealt++
	return hr
}

// Skip advances the deal sequence by one hand without retaining the cards.
// Used when replaying a deck to a recorded hand number during recovery.
func (d *Deck) Skip(numSeats, numRounds int, privatePerRound, publicPerRound []int) {
	d.DealHand(numSeats, numRounds, privatePerRound, publicPerRound)
}

func (d *Deck) shuffle() []Card {
	pack := make([]Card, 0, 52)
	for suit := Clubs; suit <= Spades; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			pack = append(pack, Card{Rank: rank, Suit: suit})
		}
	}
	d.rng.Shuffle(len(pack), func(i, j int) {
		pack[i], pack[j] = pack[j], pack[i]
	})
	return pack
}

func perRound(counts []int, r int) int {
	if r < 0 || r >= len(counts) {
		return 0
	}
	return counts[r]
}
