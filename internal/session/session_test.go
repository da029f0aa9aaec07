package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfelt/feltserver/internal/game"
	"github.com/openfelt/feltserver/internal/protocol"
)

func testSession(t *testing.T, def *game.GameDefinition, cfg SessionConfig, settings ServerSettings) *Session {
	t.Helper()
	return NewSession(cfg, def, settings, log.New(io.Discard), quartz.NewReal())
}

type nullActor struct{}

func (nullActor) NextAction() (string, error) { return "", io.EOF }
func (nullActor) Deliver(string) error        { return nil }
func (nullActor) Close() error                { return nil }

func TestCollectSeatsStartsAtMinPlayers(t *testing.T) {
	def := &game.GameDefinition{
		Name: "triple", NumRounds: 4,
		PrivateCards: []int{2, 0, 0, 0}, PublicCards: []int{0, 3, 1, 1},
		Bets: []int{2, 2, 4, 4}, BetsPerRound: []int{3, 4, 4, 4},
		Blinds: []int{1, 2}, MinPlayers: 2, MaxPlayers: 3,
	}
	s := testSession(t, def, SessionConfig{Name: "t"}, ServerSettings{})
	join := func(name string, seat int) {
		s.joinCh <- admitted{
			req:   &protocol.ConnectRequest{Kind: game.KindSocket, Name: name, BuyIn: 100, Seat: seat},
			actor: nullActor{},
		}
	}

	// Two joins meet the minimum; the game starts without a third seat.
	join("alice", 0)
	join("bob", 1)
	seats, err := s.collectSeats(context.Background())
	require.NoError(t, err)
	require.Len(t, seats, 2)

	// Joins already queued when the minimum is met fill the table.
	join("alice", 0)
	join("bob", 1)
	join("carol", 2)
	seats, err = s.collectSeats(context.Background())
	require.NoError(t, err)
	require.Len(t, seats, 3)
}

func TestUniqueName(t *testing.T) {
	s := testSession(t, game.HoldemDefinition(), SessionConfig{Name: "t"}, ServerSettings{})
	seats := []*game.Seat{game.NewSeat("alice", game.KindSocket, 100, 0, nil)}

	assert.Equal(t, "bob", s.uniqueName("bob", seats))

	got := s.uniqueName("ALICE", seats)
	assert.True(t, strings.HasPrefix(got, "ALICE"))
	assert.Greater(t, len(got), len("ALICE"), "clashing name should get a suffix")
}

func TestPickSeat(t *testing.T) {
	s := testSession(t, game.HoldemDefinition(), SessionConfig{Name: "t"}, ServerSettings{})

	assert.Equal(t, 1, s.pickSeat(1, map[int]bool{}))
	assert.Equal(t, 1, s.pickSeat(0, map[int]bool{0: true}), "taken seat falls back to a free one")
	got := s.pickSeat(-1, map[int]bool{})
	assert.Contains(t, []int{0, 1}, got)
	assert.Equal(t, 0, s.pickSeat(7, map[int]bool{1: true}), "out-of-range request gets a free seat")
}

func findFreePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func dialSession(port int) (net.Conn, error) {
	deadline := time.Now().Add(5 * time.Second)
	for {
		conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err == nil {
			return conn, nil
		}
		if time.Now().After(deadline) {
			return nil, err
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// runCallClient joins the session and calls every prompt until the game
// ends, the way the simplest possible well-behaved client would.
func runCallClient(port int, name string, seat int) error {
	conn, err := dialSession(port)
	if err != nil {
		return err
	}
	defer conn.Close()
	fmt.Fprintf(conn, "SocketPlayer:%s:100:%d\r\n", name, seat)
	fmt.Fprintf(conn, "Version:%s\r\n", protocol.Version)

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		switch {
		case strings.HasPrefix(line, protocol.GameOverMarker):
			return nil
		case strings.HasPrefix(line, "ERROR:"):
			return fmt.Errorf("%s: server said %s", name, line)
		case strings.HasPrefix(line, protocol.StatePrefix):
			fmt.Fprintf(conn, "%s:c\r\n", line)
		}
	}
	return fmt.Errorf("%s: connection closed before game over", name)
}

func TestSessionPlaysGameEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("end to end test")
	}
	port := findFreePort(t)
	dir := t.TempDir()
	settings := ServerSettings{
		Address:     "127.0.0.1",
		LogDir:      filepath.Join(dir, "logs"),
		SnapshotDir: filepath.Join(dir, "snapshots"),
		BotPortBase: 10000,
		BotDialSecs: 5,
	}
	def := game.HoldemDefinition()
	def.NumHands = 1
	cfg := SessionConfig{Name: "e2e", Game: def.Name, Port: port, Seed: 99, RunOnce: true}
	s := testSession(t, def, cfg, settings)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	served := make(chan error, 1)
	go func() { served <- s.Serve(ctx) }()

	clientErrs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func(i int) {
			clientErrs <- runCallClient(port, fmt.Sprintf("player%d", i), i)
		}(i)
	}
	for i := 0; i < 2; i++ {
		require.NoError(t, <-clientErrs)
	}
	require.NoError(t, <-served)
	assert.Equal(t, StateFinished, s.Status())

	// A finished game archives its logs and leaves no snapshot behind.
	entries, err := os.ReadDir(settings.LogDir)
	require.NoError(t, err)
	var archived bool
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "e2e.log.") {
			archived = true
		}
	}
	assert.True(t, archived, "match log should be archived")
	_, err = os.Stat(filepath.Join(settings.SnapshotDir, "e2e.snapshot"))
	assert.True(t, os.IsNotExist(err), "snapshot should be removed after game over")
}

func TestSessionRejectsBadHandshake(t *testing.T) {
	if testing.Short() {
		t.Skip("end to end test")
	}
	port := findFreePort(t)
	dir := t.TempDir()
	settings := ServerSettings{
		Address:     "127.0.0.1",
		LogDir:      filepath.Join(dir, "logs"),
		SnapshotDir: filepath.Join(dir, "snapshots"),
	}
	s := testSession(t, game.HoldemDefinition(), SessionConfig{Name: "hs", Game: "holdem", Port: port}, settings)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Serve(ctx)

	t.Run("bad version", func(t *testing.T) {
		conn, err := dialSession(port)
		require.NoError(t, err)
		defer conn.Close()
		fmt.Fprintf(conn, "SocketPlayer:eve:100:0\r\n")
		fmt.Fprintf(conn, "Version:2.0\r\n")
		line, err := bufio.NewReader(conn).ReadString('\n')
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(line, "ERROR:unsupported version"), "got %q", line)
	})
	t.Run("garbled connect", func(t *testing.T) {
		conn, err := dialSession(port)
		require.NoError(t, err)
		defer conn.Close()
		fmt.Fprintf(conn, "open sesame\r\n")
		line, err := bufio.NewReader(conn).ReadString('\n')
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(line, "ERROR:"), "got %q", line)
	})
}
