// Package handeval is the boundary to the hand-ranking collaborator. The
// engine only depends on the Evaluator interface; the default implementation
// delegates to github.com/paulhankin/poker.
package handeval

import (
	"fmt"

	poker "github.com/paulhankin/poker"

	"github.com/openfelt/feltserver/internal/deck"
)

// Result describes a showdown hand: a total-order rank (higher beats lower,
// equal ranks split), a human-readable hand name and the best five cards in
// wire form.
type Result struct {
	Rank     int
	Name     string
	BestFive string
}

// Evaluator ranks showdown hands. Implementations must produce a total order
// over any card sets the configured game can deal.
type Evaluator interface {
	Evaluate(cards []deck.Card) (Result, error)
}

// Library evaluates hands with the paulhankin/poker lookup tables.
type Library struct{}

// New returns the library-backed evaluator.
func New() *Library {
	return &Library{}
}

// Evaluate ranks 5 to 7 cards, picking the best five-card subset when more
// than five are supplied.
func (l *Library) Evaluate(cards []deck.Card) (Result, error) {
	if len(cards) < 5 {
		return Result{}, fmt.Errorf("cannot evaluate %d cards", len(cards))
	}

	bestScore := int16(-1)
	var bestFive []deck.Card
	choose := make([]int, 5)
	var five [5]poker.Card

	var rec func(start, k int) error
	rec = func(start, k int) error {
		if k == 5 {
			for i := 0; i < 5; i++ {
				pc, err := toLibrary(cards[choose[i]])
				if err != nil {
					return err
				}
				five[i] = pc
			}
			if score := poker.Eval5(&five); score > bestScore {
				bestScore = score
				bestFive = make([]deck.Card, 5)
				for i := 0; i < 5; i++ {
					bestFive[i] = cards[choose[i]]
				}
			}
			return nil
		}
		for i := start; i <= len(cards)-(5-k); i++ {
			choose[k] = i
			if err := rec(i+1, k+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := rec(0, 0); err != nil {
		return Result{}, err
	}

	name := ""
	libFive := make([]poker.Card, 5)
	for i, c := range bestFive {
		pc, err := toLibrary(c)
		if err != nil {
			return Result{}, err
		}
		libFive[i] = pc
	}
	if d, err := poker.Describe(libFive); err == nil {
		name = d
	}

	return Result{
		Rank:     int(bestScore),
		Name:     name,
		BestFive: deck.CardsString(bestFive),
	}, nil
}

// toLibrary converts our card to the library's. The library numbers ranks
// 1..13 with Ace = 1.
func toLibrary(c deck.Card) (poker.Card, error) {
	var s poker.Suit
	switch c.Suit {
	case deck.Clubs:
		s = poker.Club
	case deck.Diamonds:
		s = poker.Diamond
	case deck.Hearts:
		s = poker.Heart
	case deck.Spades:
		s = poker.Spade
	}
	var r poker.Rank
	if c.Rank == deck.Ace {
		r = poker.Rank(1)
	} else {
		r = poker.Rank(c.Rank)
	}
	card, err := poker.MakeCard(s, r)
	if err != nil {
		return card, fmt.Errorf("invalid card %s: %w", c, err)
	}
	return card, nil
}
