// Package protocol renders and parses the line protocol spoken between the
// server and its players. Every message is a single colon-delimited line.
package protocol

import (
	"fmt"
	"strings"

	"github.com/openfelt/feltserver/internal/deck"
)

// Message markers.
const (
	StatePrefix    = "MATCHSTATE"
	RosterPrefix   = "#PLAYERS"
	ShowdownPrefix = "#SHOWDOWN"
	GameOverMarker = "#GAMEOVER"
	ListeningFmt   = "Listening on port:%d"
)

// MatchState renders one state line as seen from a seat. position is the
// observer's dealing position, hand the hands-played counter, and cards the
// pre-rendered card section.
func MatchState(position, hand int, actionLog, cards string) string {
	return fmt.Sprintf("%s:%d:%d:%s:%s", StatePrefix, position, hand, actionLog, cards)
}

// CardsView renders the card section visible to one observer: the observer's
// own private cards through the given round, empty segments for everyone
// else, and all public cards revealed so far.
func CardsView(hr *deck.HandRecord, observer, throughRound int) string {
	var b strings.Builder
	for p := 0; p < hr.Seats(); p++ {
		if p == observer {
			writeSeatCards(&b, hr, p, throughRound)
		}
		if p < hr.Seats()-1 {
			b.WriteByte('|')
		}
	}
	writePublicCards(&b, hr, throughRound)
	return b.String()
}

// ShowdownCardsView renders the card section with every seat's private cards
// revealed for all rounds.
func ShowdownCardsView(hr *deck.HandRecord) string {
	var b strings.Builder
	last := hr.Rounds() - 1
	for p := 0; p < hr.Seats(); p++ {
		writeSeatCards(&b, hr, p, last)
		if p < hr.Seats()-1 {
			b.WriteByte('|')
		}
	}
	writePublicCards(&b, hr, last)
	return b.String()
}

func writeSeatCards(b *strings.Builder, hr *deck.HandRecord, position, throughRound int) {
	for r := 0; r <= throughRound; r++ {
		seg := hr.PrivateCards(position, r)
		if r > 0 && seg != "" {
			b.WriteByte('/')
		}
		b.WriteString(seg)
	}
}

func writePublicCards(b *strings.Builder, hr *deck.HandRecord, throughRound int) {
	for r := 0; r <= throughRound; r++ {
		seg := hr.PublicCards(r)
		if r > 0 && seg != "" {
			b.WriteByte('/')
		}
		b.WriteString(seg)
	}
}

// Roster renders the seating announcement sent to observing clients.
func Roster(entries []string) string {
	return RosterPrefix + "||" + strings.Join(entries, "|")
}

// Showdown renders a per-layer showdown summary for observing clients.
func Showdown(summary string) string {
	return ShowdownPrefix + "||" + summary
}

// GameOver renders the terminal message, pointing at a survey when one is
// configured.
func GameOver(surveyURL string) string {
	if surveyURL == "" {
		return GameOverMarker
	}
	return GameOverMarker + "||" + surveyURL
}
