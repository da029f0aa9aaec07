package session

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// SessionInfo is one entry of the admin session listing.
type SessionInfo struct {
	Name   string `json:"name"`
	Game   string `json:"game"`
	Port   int    `json:"port"`
	Status string `json:"status"`
}

// Handler returns the admin HTTP API: health, session listing, and a
// websocket feed of each session's raw state lines.
func (m *Manager) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", m.handleHealth)
	r.Get("/sessions", m.handleSessions)
	r.Get("/sessions/{name}", m.handleSession)
	r.Get("/sessions/{name}/feed", m.handleFeed)
	return r
}

func (m *Manager) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (m *Manager) handleSessions(w http.ResponseWriter, r *http.Request) {
	infos := make([]SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, SessionInfo{
			Name:   s.Name(),
			Game:   s.Game(),
			Port:   s.Port(),
			Status: s.Status(),
		})
	}
	writeJSON(w, infos)
}

func (m *Manager) handleSession(w http.ResponseWriter, r *http.Request) {
	s := m.Session(chi.URLParam(r, "name"))
	if s == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, s.Report())
}

func (m *Manager) handleFeed(w http.ResponseWriter, r *http.Request) {
	s := m.Session(chi.URLParam(r, "name"))
	if s == nil {
		http.NotFound(w, r)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Warn("feed upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	id, lines := s.Feed().Subscribe()
	defer s.Feed().Unsubscribe(id)

	// Drain client frames so pings and close messages get processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
