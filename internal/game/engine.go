package game

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/openfelt/feltserver/internal/deck"
	"github.com/openfelt/feltserver/internal/handeval"
	"github.com/openfelt/feltserver/internal/protocol"
)

// Recorder receives the engine's raw output: every state line, hand record
// and stats block goes to State, hand summaries for limit two-player games
// go to Divat. Implementations must be safe for use from the engine
// goroutine only.
type Recorder interface {
	State(line string)
	Divat(line string)
}

type nopRecorder struct{}

func (nopRecorder) State(string) {}
func (nopRecorder) Divat(string) {}

// Engine drives one game to completion. Run owns all engine state; the only
// methods safe to call while Run is in flight are the atomic flag accessors
// and Done.
type Engine struct {
	name string
	def  *GameDefinition

	seats []*Seat // sorted by Position at the start of every hand
	deck  *deck.Deck
	hand  *deck.HandRecord
	round *RoundState

	eval   handeval.Evaluator
	logger *log.Logger
	rec    Recorder

	handsPlayed int
	current     int // index of the seat last given action
	shuffle     bool
	injected    bool
	failed      string // seat whose channel broke

	gameOver     atomic.Bool
	disconnected atomic.Bool
	stopped      atomic.Bool

	done        chan struct{}
	release     chan struct{}
	releaseOnce sync.Once
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithEvaluator overrides the showdown evaluator.
func WithEvaluator(ev handeval.Evaluator) Option {
	return func(e *Engine) { e.eval = ev }
}

// WithRecorder attaches a raw log recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.rec = r }
}

// New creates an engine for a full table of seated players.
func New(name string, def *GameDefinition, seats []*Seat, seed int64, opts ...Option) (*Engine, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if len(seats) < def.MinPlayers || len(seats) > def.MaxPlayers {
		return nil, fmt.Errorf("game %s: %d seats, want %d to %d", name, len(seats), def.MinPlayers, def.MaxPlayers)
	}
	e := &Engine{
		name:    name,
		def:     def,
		seats:   seats,
		deck:    deck.New(seed),
		eval:    handeval.New(),
		logger:  log.New(io.Discard),
		rec:     nopRecorder{},
		shuffle: true,
		done:    make(chan struct{}),
		release: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// SetHand injects a fixed hand in place of the next deal. The deck is not
// advanced and the hands-played counter does not move for that hand.
func (e *Engine) SetHand(h *deck.HandRecord) {
	e.hand = h
	e.shuffle = false
	e.injected = true
}

// Name returns the engine's session name.
func (e *Engine) Name() string { return e.name }

// Definition returns the game rules.
func (e *Engine) Definition() *GameDefinition { return e.def }

// HandsPlayed returns the settled hand counter.
func (e *Engine) HandsPlayed() int { return e.handsPlayed }

// Disconnected reports whether a seat's channel failed mid-game.
func (e *Engine) Disconnected() bool { return e.disconnected.Load() }

// FailedSeat returns the name of the seat whose channel broke. Only valid
// once Done is closed and Disconnected reports true.
func (e *Engine) FailedSeat() string { return e.failed }

// GameOver reports whether the configured hand count has been reached.
func (e *Engine) GameOver() bool { return e.gameOver.Load() }

// Done is closed when Run has finished playing and the final state is safe
// to read.
func (e *Engine) Done() <-chan struct{} { return e.done }

// Release lets a finished Run return. The caller acknowledges it has
// captured whatever final state it needs.
func (e *Engine) Release() {
	e.releaseOnce.Do(func() { close(e.release) })
}

// Stop makes Run exit between hands without declaring the game over.
func (e *Engine) Stop() {
	e.stopped.Store(true)
}

// RebindSeat attaches a fresh channel to an existing seat, matched by name
// case-insensitively. The channel kind must match the original.
func (e *Engine) RebindSeat(name, kind string, a Actor) error {
	for _, s := range e.seats {
		if strings.EqualFold(s.Name, name) {
			if s.Kind != kind {
				return fmt.Errorf("seat %s is a %s seat, not %s", s.Name, s.Kind, kind)
			}
			if old := s.Actor(); old != nil {
				old.Close()
			}
			s.Bind(a)
			return nil
		}
	}
	return fmt.Errorf("no seat for player %q", name)
}

// Unbound returns the names of seats with no channel attached.
func (e *Engine) Unbound() []string {
	var names []string
	for _, s := range e.seats {
		if s.Actor() == nil {
			names = append(names, s.Name)
		}
	}
	return names
}

// Run plays hands until the game is over, a channel fails, or Stop is
// called. It closes Done on exit and then blocks until Release.
func (e *Engine) Run() {
	e.record(fmt.Sprintf("#SEED:%d", e.deck.Seed()))
	e.sendRoster()
	for !e.gameOver.Load() && !e.disconnected.Load() && !e.stopped.Load() {
		e.playHand()
		if !e.def.Unbounded() && e.handsPlayed >= e.def.NumHands {
			e.gameOver.Store(true)
		}
	}
	if e.gameOver.Load() {
		e.finishGame()
	}
	close(e.done)
	<-e.release
}

func (e *Engine) playHand() {
	e.round = NewRoundState(len(e.seats) - 1)
	for _, s := range e.seats {
		s.ResetHand()
		if e.def.DoylesGame() {
			s.Stack = e.def.StackSize
		}
	}
	sort.Slice(e.seats, func(i, j int) bool { return e.seats[i].Position < e.seats[j].Position })
	injected := e.injected
	if e.shuffle {
		e.hand = e.deck.DealHand(len(e.seats), e.def.NumRounds, e.def.PrivateCards, e.def.PublicCards)
	} else {
		e.shuffle = true
		e.injected = false
	}
	e.record(e.hand.String())
	if !e.def.NoLimit {
		e.round.MinRaise = e.def.Bet(0)
	}
	for {
		e.playRound()
		if e.round.Round >= e.def.NumRounds-1 {
			e.round.HandOver = true
		} else if !e.round.HandOver {
			e.nextRound()
		}
		if e.round.HandOver {
			break
		}
	}
	e.broadcastState()
	// A hand aborted by an early disconnect is replayed on resume and
	// settles nothing now.
	if e.shuffle {
		e.settle()
		if !injected {
			e.handsPlayed++
		}
		for _, s := range e.seats {
			s.Position = (s.Position + 1) % len(e.seats)
		}
		e.record(e.statsBlock())
	}
}

func (e *Engine) playRound() {
	e.current = e.round.Button
	if e.round.Round == 0 {
		e.postBlinds()
	}
	for !e.isRoundOver() {
		e.broadcastState()
		s := e.nextActiveSeat()
		if s == nil {
			return
		}
		action, err := e.obtainAction(s)
		if err != nil {
			e.logger.Warn("seat unresponsive, forcing fold", "game", e.name, "seat", s.Name, "err", err)
			e.failed = s.Name
			e.handleDisconnect()
			action = "f"
		}
		e.apply(s, action)
		if e.round.HandOver {
			return
		}
	}
}

// postBlinds collects forced bets starting from the seat after the button.
// Heads-up with reversed blinds, the button posts the small blind and acts
// first.
func (e *Engine) postBlinds() {
	if e.def.ReverseBlinds && len(e.seats) == 2 {
		e.current = 0
	}
	for i := 0; i < len(e.def.Blinds); i++ {
		s := e.nextActiveSeat()
		if s == nil {
			break
		}
		prev := s.CurrentBet
		paid := s.PostBlind(e.def.Blind(i))
		e.round.MakeBet(paid, prev)
		if e.def.NoLimit {
			e.round.Append("b" + strconv.Itoa(s.CurrentBet))
		}
	}
	// Blinds do not count against the raise cap, and the minimum raise
	// starts from the largest blind.
	e.round.NumBets = 0
	if e.def.NoLimit {
		e.round.MinRaise = e.maxBlind()
	}
}

func (e *Engine) maxBlind() int {
	m := 0
	for _, b := range e.def.Blinds {
		if b > m {
			m = b
		}
	}
	return m
}

func (e *Engine) nextRound() {
	e.round.NextRound()
	for _, s := range e.seats {
		s.ResetRound()
	}
	if e.def.NoLimit {
		e.round.MinRaise = e.maxBlind()
	} else {
		e.round.MinRaise = e.def.Bet(e.round.Round)
	}
}

// nextActiveSeat advances action to the next seat still in the hand.
func (e *Engine) nextActiveSeat() *Seat {
	for i := 0; i < len(e.seats); i++ {
		e.current = (e.current + 1) % len(e.seats)
		if s := e.seats[e.current]; s.CanAct() {
			return s
		}
	}
	return nil
}

// isRoundOver reports whether every seat is folded, all in, or has matched
// the current bet after acting.
func (e *Engine) isRoundOver() bool {
	active := len(e.seats)
	for _, s := range e.seats {
		if s.Folded || s.AllIn || (s.CurrentBet >= e.round.CurrentBet && s.Acted) {
			active--
		}
	}
	return active <= 0
}

// isHandOver reports whether no further betting is possible: all but one
// seat folded, or nobody left who can act against more than one caller.
func (e *Engine) isHandOver() bool {
	folded, allIn, callers := 0, 0, 0
	for _, s := range e.seats {
		switch {
		case s.Folded:
			folded++
		case s.AllIn:
			allIn++
		case s.CurrentBet == e.round.CurrentBet:
			callers++
		}
	}
	if folded == len(e.seats)-1 {
		return true
	}
	if callers > 1 {
		return false
	}
	return folded+allIn+callers == len(e.seats)
}

// obtainAction reads one action for a seat, re-prompting once for a garbled
// line and indefinitely for actions aimed at an already settled hand.
func (e *Engine) obtainAction(s *Seat) (string, error) {
	a := s.Actor()
	if a == nil {
		return "", fmt.Errorf("seat %s has no channel", s.Name)
	}
	retried := false
	for {
		line, err := a.NextAction()
		if err != nil {
			return "", err
		}
		hand, echoedLog, action, perr := protocol.ParseAction(line)
		if perr == nil && !validAction(action) {
			perr = fmt.Errorf("unrecognized action %q", action)
		}
		if perr != nil {
			e.logger.Warn("rejecting action", "game", e.name, "seat", s.Name, "err", perr)
			if retried {
				return "", perr
			}
			retried = true
			e.deliverState(s)
			continue
		}
		if hand != e.handsPlayed || (echoedLog != "" && echoedLog != e.round.ActionLog) {
			e.logger.Warn("action for stale state", "game", e.name, "seat", s.Name, "hand", hand, "want", e.handsPlayed)
			e.deliverState(s)
			continue
		}
		e.record(line)
		return action, nil
	}
}

func validAction(action string) bool {
	switch action[0] {
	case 'f', 'c':
		return len(action) == 1
	case 'r':
		if len(action) == 1 {
			return true
		}
		_, err := strconv.Atoi(action[1:])
		return err == nil
	}
	return false
}

// normalize rewrites illegal raises as calls. The rewrite happens exactly
// once; the resulting action is applied as is.
func (e *Engine) normalize(s *Seat, action string) string {
	if action[0] != 'r' {
		return string(action[0])
	}
	if len(action) > 1 {
		target, err := strconv.Atoi(action[1:])
		if err != nil {
			return "c"
		}
		raise := target - s.CurrentBet
		if raise <= 0 || raise < e.round.MinRaise {
			return "c"
		}
		return action
	}
	if e.round.NumBets >= e.def.RaiseCap(e.round.Round) {
		return "c"
	}
	return action
}

func (e *Engine) apply(s *Seat, action string) {
	action = e.normalize(s, action)
	prev := s.CurrentBet
	switch action[0] {
	case 'f':
		s.Fold()
		e.round.Append("f")
	case 'c':
		paid := s.Call(e.round.CurrentBet)
		e.round.MakeBet(paid, prev)
		e.round.Append("c")
		if e.def.NoLimit {
			e.round.Append(strconv.Itoa(s.CurrentBet))
		}
	case 'r':
		var raise int
		if len(action) > 1 {
			target, _ := strconv.Atoi(action[1:])
			raise = target - s.CurrentBet
		} else {
			raise = e.round.CurrentBet + e.def.Bet(e.round.Round) - s.CurrentBet
		}
		paid := s.Bet(raise)
		e.round.MakeBet(paid, prev)
		if len(action) > 1 {
			e.round.Append("r" + strconv.Itoa(s.CurrentBet))
		} else {
			e.round.Append("r")
		}
	}
	if e.isHandOver() {
		e.round.HandOver = true
	}
}

// handleDisconnect marks the session broken. When the disconnect lands in
// the first round with seats still to act, the hand is replayed on resume
// instead of being settled short-handed.
func (e *Engine) handleDisconnect() {
	e.disconnected.Store(true)
	e.round.HandOver = true
	if e.round.Round == 0 && e.anyUnacted() {
		e.shuffle = false
	}
}

func (e *Engine) anyUnacted() bool {
	for _, s := range e.seats {
		if !s.Acted && s.CanAct() {
			return true
		}
	}
	return false
}

func (e *Engine) broadcastState() {
	for _, s := range e.seats {
		e.deliverState(s)
	}
}

func (e *Engine) deliverState(s *Seat) {
	view := protocol.MatchState(s.Position, e.handsPlayed, e.round.ActionLog,
		protocol.CardsView(e.hand, s.Position, e.round.Round))
	e.deliver(s, view)
	e.record(view)
}

func (e *Engine) deliver(s *Seat, line string) {
	a := s.Actor()
	if a == nil {
		return
	}
	if err := a.Deliver(line); err != nil {
		e.logger.Warn("delivery failed", "game", e.name, "seat", s.Name, "err", err)
	}
}

func (e *Engine) sendRoster() {
	roster := e.Roster()
	for _, s := range e.seats {
		if s.Kind == KindGUI {
			e.deliver(s, roster)
		}
	}
	e.record(roster)
}

// Roster renders the seating announcement for observing clients.
func (e *Engine) Roster() string {
	bySeat := make([]*Seat, len(e.seats))
	copy(bySeat, e.seats)
	sort.Slice(bySeat, func(i, j int) bool { return bySeat[i].SeatIndex < bySeat[j].SeatIndex })
	entries := make([]string, len(bySeat))
	for i, s := range bySeat {
		entries[i] = s.String()
	}
	return protocol.Roster(entries)
}

func (e *Engine) finishGame() {
	msg := protocol.GameOver(e.def.SurveyURL)
	for _, s := range e.seats {
		e.deliver(s, msg)
	}
	e.record(msg)
}

// statsBlock renders the roster and counters appended to the raw log after
// every settled hand. The log rebuilder reads the last block back.
func (e *Engine) statsBlock() string {
	var b strings.Builder
	fmt.Fprintf(&b, "STATS:Current Player:%d:Hands Played:%d", e.current, e.handsPlayed)
	for _, s := range e.seats {
		fmt.Fprintf(&b, "\nSEAT:%s:%s:%d:%d:%d:%d:%d",
			s.Name, s.Kind, s.SeatIndex, s.Position, s.Stack, s.BuyIn, s.Score)
	}
	return b.String()
}

func (e *Engine) record(line string) {
	e.rec.State(line)
}
