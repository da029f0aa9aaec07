package snapshot

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/openfelt/feltserver/internal/game"
)

// Rebuild reconstructs engine state from a raw match log, the fallback when
// no snapshot exists. The log carries the deck seed in its header and a
// stats block after every settled hand; the last block wins. The game rules
// are not in the log and come from configuration.
func Rebuild(def *game.GameDefinition, name string, r io.Reader) (*game.EngineState, error) {
	var (
		seed      int64
		seenSeed  bool
		hands     int
		current   int
		seats     []game.SeatState
		seenStats bool
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "#SEED:"):
			v, err := strconv.ParseInt(line[len("#SEED:"):], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("match log %s: bad seed line %q", name, line)
			}
			seed = v
			seenSeed = true
		case strings.HasPrefix(line, "STATS:"):
			h, c, err := parseStats(line)
			if err != nil {
				return nil, fmt.Errorf("match log %s: %w", name, err)
			}
			hands, current = h, c
			seats = seats[:0]
			seenStats = true
		case strings.HasPrefix(line, "SEAT:"):
			seat, err := parseSeat(line)
			if err != nil {
				return nil, fmt.Errorf("match log %s: %w", name, err)
			}
			seats = append(seats, seat)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading match log %s: %w", name, err)
	}
	if !seenSeed {
		return nil, fmt.Errorf("match log %s: no seed header", name)
	}
	if !seenStats || len(seats) == 0 {
		return nil, fmt.Errorf("match log %s: no complete stats block", name)
	}
	return &game.EngineState{
		Name:        name,
		Game:        *def,
		Seats:       seats,
		Seed:        seed,
		HandsDealt:  hands,
		HandsPlayed: hands,
		CurrentSeat: current,
		Shuffle:     true,
	}, nil
}

// parseStats parses "STATS:Current Player:<i>:Hands Played:<n>".
func parseStats(line string) (hands, current int, err error) {
	tokens := strings.Split(line, ":")
	if len(tokens) != 5 || tokens[1] != "Current Player" || tokens[3] != "Hands Played" {
		return 0, 0, fmt.Errorf("malformed stats line %q", line)
	}
	current, err = strconv.Atoi(tokens[2])
	if err != nil {
		return 0, 0, fmt.Errorf("stats line %q: bad current player", line)
	}
	hands, err = strconv.Atoi(tokens[4])
	if err != nil {
		return 0, 0, fmt.Errorf("stats line %q: bad hand count", line)
	}
	return hands, current, nil
}

// parseSeat parses "SEAT:<name>:<kind>:<seat>:<position>:<stack>:<buyIn>:<score>".
func parseSeat(line string) (game.SeatState, error) {
	tokens := strings.Split(line, ":")
	if len(tokens) != 8 {
		return game.SeatState{}, fmt.Errorf("malformed seat line %q", line)
	}
	nums := make([]int, 5)
	for i, tok := range tokens[3:] {
		v, err := strconv.Atoi(tok)
		if err != nil {
			return game.SeatState{}, fmt.Errorf("seat line %q: bad field %q", line, tok)
		}
		nums[i] = v
	}
	return game.SeatState{
		Name:      tokens[1],
		Kind:      tokens[2],
		BuyIn:     nums[3],
		SeatIndex: nums[0],
		Stack:     nums[2],
		Score:     nums[4],
		Position:  nums[1],
	}, nil
}
