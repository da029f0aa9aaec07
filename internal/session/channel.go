package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/openfelt/feltserver/internal/game"
	"github.com/openfelt/feltserver/internal/protocol"
)

const botListenAttempts = 3

// lineChannel adapts a TCP connection to the engine's seat channel. Reads
// carry an optional idle deadline so a stalled player eventually counts as
// disconnected.
type lineChannel struct {
	conn net.Conn
	r    *bufio.Reader
	idle time.Duration

	mu     sync.Mutex
	closed bool
}

func newLineChannel(conn net.Conn, idle time.Duration) *lineChannel {
	return &lineChannel{
		conn: conn,
		r:    bufio.NewReader(conn),
		idle: idle,
	}
}

// NewSocketChannel wraps an already admitted player connection.
func NewSocketChannel(conn net.Conn, idle time.Duration) game.Actor {
	return newLineChannel(conn, idle)
}

func (c *lineChannel) NextAction() (string, error) {
	// Re-arm on every read so a deadline from an earlier phase (the
	// handshake) never outlives it. Zero idle means no bound.
	deadline := time.Time{}
	if c.idle > 0 {
		deadline = time.Now().Add(c.idle)
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return "", err
	}
	line, err := c.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *lineChannel) Deliver(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return net.ErrClosed
	}
	_, err := fmt.Fprintf(c.conn, "%s\r\n", line)
	return err
}

func (c *lineChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

// NewGUIChannel finishes the GUI handshake: the rules go out on the control
// connection as JSON along with an ephemeral port, and the GUI dials back a
// dedicated game connection. The control connection stays open only as long
// as the dial-back takes.
func NewGUIChannel(control net.Conn, def *game.GameDefinition, idle, dialTimeout time.Duration) (game.Actor, error) {
	rules, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("encoding game rules: %w", err)
	}
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		return nil, fmt.Errorf("opening dial-back listener: %w", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	if _, err := fmt.Fprintf(control, "%s\r\n"+protocol.ListeningFmt+"\r\n", rules, port); err != nil {
		ln.Close()
		return nil, fmt.Errorf("sending dial-back port: %w", err)
	}
	conn, err := acceptWithTimeout(ln, dialTimeout)
	ln.Close()
	if err != nil {
		return nil, fmt.Errorf("waiting for GUI dial-back: %w", err)
	}
	return newLineChannel(conn, idle), nil
}

// botChannel runs a bot executable and talks to it over the connection the
// bot dials back.
type botChannel struct {
	*lineChannel
	cmd *exec.Cmd
}

func (b *botChannel) Close() error {
	err := b.lineChannel.Close()
	if b.cmd.Process != nil {
		b.cmd.Process.Kill()
	}
	b.cmd.Wait()
	return err
}

// NewBotChannel spawns a bot process and waits for it to dial back. The
// listening port is picked at random above portBase; a port already in use
// gets a few retries.
func NewBotChannel(script string, portBase int, idle, dialTimeout time.Duration, logger *log.Logger) (game.Actor, error) {
	var (
		ln   net.Listener
		port int
		err  error
	)
	for attempt := 0; attempt < botListenAttempts; attempt++ {
		port = portBase + rand.IntN(1000)
		ln, err = net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err == nil {
			break
		}
		logger.Warn("bot port unavailable", "port", port, "err", err)
	}
	if ln == nil {
		return nil, fmt.Errorf("no free bot port above %d: %w", portBase, err)
	}

	args := strings.Fields(script)
	cmd := exec.Command(args[0], append(args[1:], "localhost", fmt.Sprintf("%d", port))...)
	if err := cmd.Start(); err != nil {
		ln.Close()
		return nil, fmt.Errorf("starting bot %q: %w", script, err)
	}
	logger.Info("spawned bot", "script", args[0], "pid", cmd.Process.Pid, "port", port)

	conn, err := acceptWithTimeout(ln, dialTimeout)
	ln.Close()
	if err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return nil, fmt.Errorf("waiting for bot dial-back: %w", err)
	}
	return &botChannel{lineChannel: newLineChannel(conn, idle), cmd: cmd}, nil
}

func acceptWithTimeout(ln net.Listener, timeout time.Duration) (net.Conn, error) {
	if tcp, ok := ln.(*net.TCPListener); ok && timeout > 0 {
		if err := tcp.SetDeadline(time.Now().Add(timeout)); err != nil {
			return nil, err
		}
	}
	return ln.Accept()
}
