// feltbot is a minimal automated player for felt sessions. It answers every
// state broadcast, which the server tolerates: responses to superseded
// states are skipped and re-prompted.
package main

import (
	"bufio"
	"fmt"
	"math/rand/v2"
	"net"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/openfelt/feltserver/internal/logutil"
	"github.com/openfelt/feltserver/internal/protocol"
)

var CLI struct {
	Addr     string `short:"a" long:"addr" default:"localhost:9000" help:"Session address to connect to"`
	Name     string `short:"n" long:"name" default:"feltbot" help:"Player name"`
	BuyIn    int    `short:"b" long:"buy-in" default:"1000" help:"Buy-in amount"`
	Seat     int    `short:"s" long:"seat" default:"0" help:"Requested seat"`
	Strategy string `long:"strategy" default:"call" enum:"call,random" help:"Playing strategy"`
	LogLevel string `short:"l" long:"log-level" default:"info" help:"Log level"`
}

func main() {
	ctx := kong.Parse(&CLI)
	logger := logutil.New(os.Stderr, CLI.LogLevel)

	conn, err := net.Dial("tcp", CLI.Addr)
	if err != nil {
		logger.Error("Failed to connect", "addr", CLI.Addr, "error", err)
		ctx.Exit(1)
	}
	defer conn.Close()

	fmt.Fprintf(conn, "SocketPlayer:%s:%d:%d\r\n", CLI.Name, CLI.BuyIn, CLI.Seat)
	fmt.Fprintf(conn, "Version:%s\r\n", protocol.Version)
	logger.Info("Connected", "addr", CLI.Addr, "name", CLI.Name)

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, protocol.StatePrefix+":"):
			action := chooseAction(line)
			if action == "" {
				continue
			}
			logger.Debug("Responding", "state", line, "action", action)
			fmt.Fprintf(conn, "%s:%s\r\n", line, action)
		case strings.HasPrefix(line, protocol.GameOverMarker):
			logger.Info("Game over", "message", line)
			return
		case strings.HasPrefix(line, "ERROR:"):
			logger.Error("Server rejected us", "message", line)
			ctx.Exit(1)
		default:
			logger.Debug("Ignoring", "line", line)
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Error("Connection lost", "error", err)
		ctx.Exit(1)
	}
	logger.Info("Server closed the connection")
}

// chooseAction picks a reply to a state line. Showdown recaps reveal other
// seats' cards and need no reply.
func chooseAction(state string) string {
	if isShowdown(state) {
		return ""
	}
	switch CLI.Strategy {
	case "random":
		switch rand.IntN(10) {
		case 0:
			return "f"
		case 1, 2:
			return "r"
		default:
			return "c"
		}
	default:
		return "c"
	}
}

// isShowdown reports whether a state line reveals more than one seat's
// private cards.
func isShowdown(state string) bool {
	tokens := strings.Split(state, ":")
	if len(tokens) < 5 {
		return false
	}
	cards := tokens[4]
	revealed := 0
	for _, seg := range strings.Split(cards, "|") {
		if seg != "" && !strings.HasPrefix(seg, "/") {
			revealed++
		}
	}
	return revealed > 1
}
