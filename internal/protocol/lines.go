package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is the protocol version every client must announce after its
// connect line.
const Version = "1.0.0"

// Connect line prefixes.
const (
	connectSocket = "SocketPlayer"
	connectGUI    = "GUIPlayer"
	connectBot    = "AAAIPlayer"
)

// Client kinds, mirrored in the game package's seat kinds.
const (
	KindSocket = "socket"
	KindGUI    = "gui"
	KindBot    = "bot"
)

// ConnectRequest is a parsed connect line.
type ConnectRequest struct {
	Kind   string
	Name   string
	BuyIn  int
	Seat   int
	Script string // bot executable, bot connects only
}

// ParseConnect parses the first line a client sends:
//
//	SocketPlayer:<name>:<buyIn>:<seat>
//	GUIPlayer:<name>:<buyIn>:<seat>
//	AAAIPlayer:<name>:<buyIn>:<seat>:<script>
func ParseConnect(line string) (*ConnectRequest, error) {
	tokens := strings.Split(strings.TrimSpace(line), ":")
	if len(tokens) < 4 {
		return nil, fmt.Errorf("malformed connect line %q", line)
	}
	req := &ConnectRequest{Name: tokens[1]}
	switch tokens[0] {
	case connectSocket:
		req.Kind = KindSocket
	case connectGUI:
		req.Kind = KindGUI
	case connectBot:
		req.Kind = KindBot
		if len(tokens) < 5 {
			return nil, fmt.Errorf("connect line %q missing bot script", line)
		}
		req.Script = strings.Join(tokens[4:], ":")
		if strings.TrimSpace(req.Script) == "" {
			return nil, fmt.Errorf("connect line %q missing bot script", line)
		}
	default:
		return nil, fmt.Errorf("unknown client type %q", tokens[0])
	}
	if req.Name == "" {
		return nil, fmt.Errorf("connect line %q missing player name", line)
	}
	buyIn, err := strconv.Atoi(tokens[2])
	if err != nil || buyIn <= 0 {
		return nil, fmt.Errorf("connect line %q: bad buy-in %q", line, tokens[2])
	}
	req.BuyIn = buyIn
	seat, err := strconv.Atoi(tokens[3])
	if err != nil || seat < 0 {
		return nil, fmt.Errorf("connect line %q: bad seat %q", line, tokens[3])
	}
	req.Seat = seat
	return req, nil
}

// IsVersion reports whether a line is the mandatory version announcement.
// The comparison is case-insensitive.
func IsVersion(line string) bool {
	return strings.EqualFold(strings.TrimSpace(line), "Version:"+Version)
}

// ParseAction parses an action line echoed back by a player. The line mirrors
// the state the player is responding to, so the hand number sits in the third
// token, the echoed action log in the fourth, and the chosen action in the
// last:
//
//	MATCHSTATE:<pos>:<hand>:<log>:...:<action>
func ParseAction(line string) (hand int, echoedLog, action string, err error) {
	tokens := strings.Split(strings.TrimSpace(line), ":")
	if len(tokens) < 4 {
		return 0, "", "", fmt.Errorf("malformed action line %q", line)
	}
	hand, err = strconv.Atoi(tokens[2])
	if err != nil {
		return 0, "", "", fmt.Errorf("action line %q: bad hand number %q", line, tokens[2])
	}
	if len(tokens) > 4 {
		echoedLog = tokens[3]
	}
	action = tokens[len(tokens)-1]
	if action == "" {
		return 0, "", "", fmt.Errorf("action line %q: empty action", line)
	}
	return hand, echoedLog, action, nil
}
