// Package deck implements the card model and the seeded dealer used to
// generate hands. Cards render in the compact two-character wire form used by
// the match protocol, e.g. "Ah" or "Td".
package deck

import "fmt"

// Suit represents a card suit.
type Suit int

const (
	Clubs Suit = iota
	Diamonds
	Hearts
	Spades
)

// String returns the lowercase wire letter for the suit.
func (s Suit) String() string {
	switch s {
	case Clubs:
		return "c"
	case Diamonds:
		return "d"
	case Hearts:
		return "h"
	case Spades:
		return "s"
	default:
		return "?"
	}
}

// Rank represents a card rank, Two through Ace.
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

const rankLetters = "23456789TJQKA"

// String returns the single-character wire form of the rank.
func (r Rank) String() string {
	if r < Two || r > Ace {
		return "?"
	}
	return string(rankLetters[r-Two])
}

// Card represents a playing card.
type Card struct {
	Rank Rank
	Suit Suit
}

// String returns the two-character wire form, rank then suit, e.g. "Kd".
func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}

// ParseCard parses the two-character wire form back into a Card.
func ParseCard(s string) (Card, error) {
	if len(s) != 2 {
		return Card{}, fmt.Errorf("invalid card %q", s)
	}
	var card Card
	switch s[0] {
	case 'T':
		card.Rank = Ten
	case 'J':
		card.Rank = Jack
	case 'Q':
		card.Rank = Queen
	case 'K':
		card.Rank = King
	case 'A':
		card.Rank = Ace
	default:
		if s[0] < '2' || s[0] > '9' {
			return Card{}, fmt.Errorf("invalid card rank %q", s)
		}
		card.Rank = Rank(s[0] - '0')
	}
	switch s[1] {
	case 'c':
		card.Suit = Clubs
	case 'd':
		card.Suit = Diamonds
	case 'h':
		card.Suit = Hearts
	case 's':
		card.Suit = Spades
	default:
		return Card{}, fmt.Errorf("invalid card suit %q", s)
	}
	return card, nil
}

// CardsString concatenates cards in wire form with no separator.
func CardsString(cards []Card) string {
	out := ""
	for _, c := range cards {
		out += c.String()
	}
	return out
}
