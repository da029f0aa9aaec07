package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"
)

// Manager owns every configured session plus the admin HTTP surface and
// runs them together.
type Manager struct {
	cfg      *Config
	logger   *log.Logger
	clock    quartz.Clock
	sessions []*Session
	byName   map[string]*Session
}

// NewManager validates configuration and builds all sessions.
func NewManager(cfg *Config, logger *log.Logger, clock quartz.Clock) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Manager{
		cfg:    cfg,
		logger: logger,
		clock:  clock,
		byName: make(map[string]*Session),
	}
	for _, sc := range cfg.Sessions {
		def, err := cfg.GameDefinition(sc.Game)
		if err != nil {
			return nil, err
		}
		sess := NewSession(sc, def, cfg.Server, logger, clock)
		m.sessions = append(m.sessions, sess)
		m.byName[sc.Name] = sess
	}
	return m, nil
}

// Session looks a session up by name.
func (m *Manager) Session(name string) *Session {
	return m.byName[name]
}

// Sessions returns every session in configuration order.
func (m *Manager) Sessions() []*Session {
	return m.sessions
}

// Run serves all sessions until the context is cancelled. Run-once sessions
// that complete do not stop the rest.
func (m *Manager) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, sess := range m.sessions {
		g.Go(func() error { return sess.Serve(ctx) })
	}
	if m.cfg.Server.AdminPort > 0 {
		g.Go(func() error { return m.serveAdmin(ctx) })
	}
	return g.Wait()
}

func (m *Manager) serveAdmin(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Server.Address, m.cfg.Server.AdminPort)
	srv := &http.Server{Addr: addr, Handler: m.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	m.logger.Info("admin API listening", "addr", addr)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
