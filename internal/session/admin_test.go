package session

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(DefaultConfig(), log.New(io.Discard), quartz.NewReal())
	require.NoError(t, err)
	return m
}

func TestAdminHealth(t *testing.T) {
	srv := httptest.NewServer(testManager(t).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestAdminSessionListing(t *testing.T) {
	srv := httptest.NewServer(testManager(t).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/sessions")
	require.NoError(t, err)
	defer resp.Body.Close()

	var infos []SessionInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "main", infos[0].Name)
	assert.Equal(t, "holdem", infos[0].Game)
	assert.Equal(t, 9000, infos[0].Port)
	assert.Equal(t, StateWaiting, infos[0].Status)
}

func TestAdminSessionReport(t *testing.T) {
	srv := httptest.NewServer(testManager(t).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/sessions/main")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "main:holdem:9000:waiting\n", string(body))

	resp, err = http.Get(srv.URL + "/sessions/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminFeedUnknownSession(t *testing.T) {
	srv := httptest.NewServer(testManager(t).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/sessions/nope/feed")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminFeedStreamsStateLines(t *testing.T) {
	m := testManager(t)
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sessions/main/feed"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// Give the handler a beat to subscribe before publishing.
	require.Eventually(t, func() bool {
		m.Session("main").Feed().Publish("MATCHSTATE:0:0::AhKd|")
		conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		_, msg, err := conn.ReadMessage()
		return err == nil && string(msg) == "MATCHSTATE:0:0::AhKd|"
	}, 5*time.Second, 100*time.Millisecond)
}
