package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/openfelt/feltserver/internal/game"
	"github.com/openfelt/feltserver/internal/protocol"
	"github.com/openfelt/feltserver/internal/snapshot"
)

const (
	handshakeTimeout = 30 * time.Second
	dialBackTimeout  = 2 * time.Minute
	statusInterval   = 30 * time.Second
	joinBacklog      = 8
)

// Session states reported to the admin API.
const (
	StateWaiting     = "waiting"
	StateRunning     = "running"
	StateInterrupted = "interrupted"
	StateFinished    = "finished"
)

type admitted struct {
	req   *protocol.ConnectRequest
	actor game.Actor
}

type boundActor struct {
	kind  string
	actor game.Actor
}

// Session owns one listening port and plays games on it back to back. A
// session survives player disconnects: it snapshots the engine, waits for
// the missing player to return, and resumes from where play stopped.
type Session struct {
	cfg      SessionConfig
	def      *game.GameDefinition
	settings ServerSettings
	logger   *log.Logger
	clock    quartz.Clock
	feed     *Feed

	joinCh chan admitted

	mu     sync.Mutex
	actors map[string]boundActor
	status string

	// Orchestrator goroutine only.
	pending *game.EngineState
	rec     *LogRecorder
}

// NewSession wires a session from configuration.
func NewSession(cfg SessionConfig, def *game.GameDefinition, settings ServerSettings, logger *log.Logger, clock quartz.Clock) *Session {
	return &Session{
		cfg:      cfg,
		def:      def,
		settings: settings,
		logger:   logger.WithPrefix(cfg.Name),
		clock:    clock,
		feed:     NewFeed(),
		joinCh:   make(chan admitted, joinBacklog),
		actors:   make(map[string]boundActor),
		status:   StateWaiting,
	}
}

// Name returns the session name.
func (s *Session) Name() string { return s.cfg.Name }

// Game returns the name of the game the session plays.
func (s *Session) Game() string { return s.def.Name }

// Port returns the session's listening port.
func (s *Session) Port() int { return s.cfg.Port }

// Feed returns the session's live state feed.
func (s *Session) Feed() *Feed { return s.feed }

// Status returns the session state for the admin API.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Report renders the session's colon-delimited status line, used by the
// admin endpoint and the post-game log entry.
func (s *Session) Report() string {
	return fmt.Sprintf("%s:%s:%d:%s", s.cfg.Name, s.def.Name, s.cfg.Port, s.Status())
}

func (s *Session) setStatus(status string) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// Serve listens for players and plays games until the context is cancelled
// or, for run-once sessions, the first game completes.
func (s *Session) Serve(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.settings.Address, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("session %s: %w", s.cfg.Name, err)
	}
	defer ln.Close()
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	go s.acceptLoop(ln)
	s.logger.Info("session listening", "addr", addr, "game", s.def.Name)

	for {
		eng, err := s.buildEngine(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		finished, err := s.playGame(ctx, eng)
		if err != nil {
			return err
		}
		if finished && s.cfg.RunOnce {
			s.logger.Info("run-once session complete")
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// buildEngine produces the next engine to run: resumed from an interrupted
// game when there is anything to resume, fresh otherwise. It blocks until
// every seat has a live channel.
func (s *Session) buildEngine(ctx context.Context) (*game.Engine, error) {
	rec, err := OpenLogRecorder(s.settings.LogDir, s.cfg.Name, s.feed)
	if err != nil {
		return nil, err
	}
	s.rec = rec
	opts := []game.Option{
		game.WithLogger(s.logger),
		game.WithRecorder(rec),
	}

	st := s.recoverState()
	if st != nil {
		eng, err := game.NewFromState(st, opts...)
		if err != nil {
			s.logger.Error("discarding unusable saved state", "err", err)
		} else {
			s.rebindSurvivors(eng)
			if err := s.collectRebinds(ctx, eng); err != nil {
				s.closeRecorder()
				return nil, err
			}
			s.logger.Info("resuming game", "hands", st.HandsPlayed)
			return eng, nil
		}
	}

	seats, err := s.collectSeats(ctx)
	if err != nil {
		s.closeRecorder()
		return nil, err
	}
	seed := s.cfg.Seed
	if seed == 0 {
		seed = s.clock.Now().UnixNano()
	}
	eng, err := game.New(s.cfg.Name, s.def, seats, seed, opts...)
	if err != nil {
		s.closeRecorder()
		return nil, err
	}
	return eng, nil
}

// recoverState finds interrupted-game state, preferring the in-memory state
// of a game this process was just playing, then the snapshot file, then a
// rebuild from the raw match log.
func (s *Session) recoverState() *game.EngineState {
	if st := s.pending; st != nil {
		s.pending = nil
		return st
	}
	if snap, err := snapshot.Load(s.snapshotPath()); err == nil {
		s.logger.Info("recovered state from snapshot", "saved_at", snap.SavedAt)
		return snap.EngineState()
	} else if !os.IsNotExist(err) {
		s.logger.Warn("snapshot unreadable", "err", err)
	}
	logPath := filepath.Join(s.settings.LogDir, s.cfg.Name+".log")
	f, err := os.Open(logPath)
	if err != nil {
		return nil
	}
	defer f.Close()
	st, err := snapshot.Rebuild(s.def, s.cfg.Name, f)
	if err != nil {
		s.logger.Warn("match log not rebuildable", "err", err)
		return nil
	}
	s.logger.Info("rebuilt state from match log", "hands", st.HandsPlayed)
	return st
}

// playGame runs one engine to completion and deals with how it ended.
// It reports whether the game finished (rather than being interrupted).
func (s *Session) playGame(ctx context.Context, eng *game.Engine) (bool, error) {
	s.setStatus(StateRunning)
	started := s.clock.Now()

	runCtx, cancel := context.WithCancel(ctx)
	ticker := s.clock.TickerFunc(runCtx, statusInterval, func() error {
		s.logger.Info("session running", "players", s.actorCount(), "uptime", s.clock.Since(started).Round(time.Second))
		return nil
	}, "status")

	go eng.Run()
	select {
	case <-ctx.Done():
		// Exit between hands, and kick the engine off its blocking read.
		eng.Stop()
		s.closeActors()
		<-eng.Done()
	case <-eng.Done():
	}
	cancel()
	ticker.Wait()

	st := eng.State()
	eng.Release()
	s.closeRecorder()

	switch {
	case eng.GameOver():
		s.setStatus(StateFinished)
		s.logger.Info("game over", "hands", eng.HandsPlayed(), "report", s.Report())
		os.Remove(s.snapshotPath())
		s.closeActors()
		s.archiveLogs()
		return true, nil
	case ctx.Err() != nil:
		s.saveSnapshot(st)
		s.closeActors()
		return false, nil
	default:
		// A seat dropped mid-game.
		s.setStatus(StateInterrupted)
		s.dropActor(eng.FailedSeat())
		s.saveSnapshot(st)
		s.pending = st
		return false, nil
	}
}

func (s *Session) closeRecorder() {
	if s.rec != nil {
		s.rec.Close()
		s.rec = nil
	}
}

func (s *Session) snapshotPath() string {
	return filepath.Join(s.settings.SnapshotDir, s.cfg.Name+".snapshot")
}

func (s *Session) saveSnapshot(st *game.EngineState) {
	if err := os.MkdirAll(s.settings.SnapshotDir, 0o755); err != nil {
		s.logger.Error("creating snapshot dir", "err", err)
		return
	}
	if err := snapshot.Save(s.snapshotPath(), snapshot.Capture(st, s.clock.Now())); err != nil {
		s.logger.Error("saving snapshot", "err", err)
		return
	}
	s.logger.Info("saved snapshot", "hands", st.HandsPlayed)
}

// archiveLogs moves a finished game's logs aside so the next game starts a
// fresh log and recovery never resumes a completed game.
func (s *Session) archiveLogs() {
	ts := s.clock.Now().Unix()
	for _, ext := range []string{".log", ".divat"} {
		path := filepath.Join(s.settings.LogDir, s.cfg.Name+ext)
		os.Rename(path, fmt.Sprintf("%s.%d", path, ts))
	}
}

// collectSeats admits players for a fresh game. The game starts as soon as
// the minimum seat count is reached; players already queued at that point
// fill the table up to the maximum.
func (s *Session) collectSeats(ctx context.Context) ([]*game.Seat, error) {
	s.setStatus(StateWaiting)
	var seats []*game.Seat
	taken := make(map[int]bool)
	admit := func(a admitted) {
		name := s.uniqueName(a.req.Name, seats)
		idx := s.pickSeat(a.req.Seat, taken)
		taken[idx] = true
		buyIn := a.req.BuyIn
		if s.def.DoylesGame() {
			buyIn = s.def.StackSize
		}
		seats = append(seats, game.NewSeat(name, a.req.Kind, buyIn, idx, a.actor))
		s.bindActor(name, a.req.Kind, a.actor)
		s.logger.Info("seated player", "player", name, "kind", a.req.Kind, "seat", idx, "stack", buyIn)
	}
	for len(seats) < s.def.MinPlayers {
		select {
		case <-ctx.Done():
			return nil, context.Canceled
		case a := <-s.joinCh:
			admit(a)
		}
	}
	for len(seats) < s.def.MaxPlayers {
		select {
		case a := <-s.joinCh:
			admit(a)
		default:
			return seats, nil
		}
	}
	return seats, nil
}

// collectRebinds waits for every unbound seat of a resumed engine to get a
// channel back.
func (s *Session) collectRebinds(ctx context.Context, eng *game.Engine) error {
	for {
		missing := eng.Unbound()
		if len(missing) == 0 {
			return nil
		}
		s.logger.Info("waiting for players to return", "missing", strings.Join(missing, ","))
		select {
		case <-ctx.Done():
			return context.Canceled
		case a := <-s.joinCh:
			if err := eng.RebindSeat(a.req.Name, a.req.Kind, a.actor); err != nil {
				s.logger.Warn("rejecting reconnect", "player", a.req.Name, "err", err)
				a.actor.Deliver("ERROR:" + err.Error())
				a.actor.Close()
				continue
			}
			s.bindActor(a.req.Name, a.req.Kind, a.actor)
			if a.req.Kind == game.KindGUI {
				a.actor.Deliver(eng.Roster())
			}
			s.logger.Info("player returned", "player", a.req.Name)
		}
	}
}

// rebindSurvivors reattaches the channels of players who stayed connected
// across an interruption.
func (s *Session) rebindSurvivors(eng *game.Engine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, b := range s.actors {
		if err := eng.RebindSeat(name, b.kind, b.actor); err != nil {
			s.logger.Warn("dropping survivor", "player", name, "err", err)
			b.actor.Close()
			delete(s.actors, name)
		}
	}
}

func (s *Session) bindActor(name, kind string, a game.Actor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actors[name] = boundActor{kind: kind, actor: a}
}

func (s *Session) dropActor(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for bound, b := range s.actors {
		if strings.EqualFold(bound, name) {
			b.actor.Close()
			delete(s.actors, bound)
			return
		}
	}
}

func (s *Session) closeActors() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, b := range s.actors {
		b.actor.Close()
		delete(s.actors, name)
	}
}

func (s *Session) actorCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.actors)
}

// uniqueName disambiguates duplicate player names with random digits.
func (s *Session) uniqueName(name string, seats []*game.Seat) string {
	for {
		clash := false
		for _, seat := range seats {
			if strings.EqualFold(seat.Name, name) {
				clash = true
				break
			}
		}
		if !clash {
			return name
		}
		name += fmt.Sprintf("%d", rand.IntN(10))
	}
}

// pickSeat honors a requested seat when it is free, otherwise assigns a
// random free one.
func (s *Session) pickSeat(requested int, taken map[int]bool) int {
	if requested >= 0 && requested < s.def.MaxPlayers && !taken[requested] {
		return requested
	}
	var free []int
	for i := 0; i < s.def.MaxPlayers; i++ {
		if !taken[i] {
			free = append(free, i)
		}
	}
	return free[rand.IntN(len(free))]
}

func (s *Session) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go s.handshake(conn)
	}
}

// handshake validates the connect and version lines, builds the channel for
// the client's kind, and queues it for seating.
func (s *Session) handshake(conn net.Conn) {
	ch := newLineChannel(conn, handshakeTimeout)

	line, err := ch.NextAction()
	if err != nil {
		conn.Close()
		return
	}
	req, err := protocol.ParseConnect(line)
	if err != nil {
		s.logger.Warn("rejecting connection", "remote", conn.RemoteAddr(), "err", err)
		ch.Deliver("ERROR:" + err.Error())
		conn.Close()
		return
	}
	line, err = ch.NextAction()
	if err != nil || !protocol.IsVersion(line) {
		s.logger.Warn("rejecting connection", "player", req.Name, "reason", "bad version", "got", line)
		ch.Deliver(fmt.Sprintf("ERROR:unsupported version, want %s", protocol.Version))
		conn.Close()
		return
	}

	idle := time.Duration(s.settings.ActionTimeSecs) * time.Second
	var actor game.Actor
	switch req.Kind {
	case protocol.KindSocket:
		ch.idle = idle
		actor = ch
	case protocol.KindGUI:
		actor, err = NewGUIChannel(conn, s.def, idle, dialBackTimeout)
		if err == nil {
			conn.Close()
		}
	case protocol.KindBot:
		dial := time.Duration(s.settings.BotDialSecs) * time.Second
		actor, err = NewBotChannel(req.Script, s.settings.BotPortBase, idle, dial, s.logger)
		if err == nil {
			ch.Deliver("OK:bot spawned")
			conn.Close()
		}
	}
	if err != nil {
		s.logger.Warn("channel setup failed", "player", req.Name, "kind", req.Kind, "err", err)
		ch.Deliver("ERROR:" + err.Error())
		conn.Close()
		return
	}

	select {
	case s.joinCh <- admitted{req: req, actor: actor}:
	case <-time.After(handshakeTimeout):
		s.logger.Warn("no seat available", "player", req.Name)
		actor.Deliver("ERROR:session not accepting players")
		actor.Close()
	}
}
