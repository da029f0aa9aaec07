package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// LogRecorder appends engine output to the session's raw match log and, for
// limit two-player games, a hand summary log. Every state line also fans out
// to the session's live feed.
type LogRecorder struct {
	mu    sync.Mutex
	state *os.File
	divat *os.File
	feed  *Feed
}

// OpenLogRecorder opens (or resumes) the log files for a session.
func OpenLogRecorder(dir, name string, feed *Feed) (*LogRecorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}
	state, err := os.OpenFile(filepath.Join(dir, name+".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	divat, err := os.OpenFile(filepath.Join(dir, name+".divat"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		state.Close()
		return nil, err
	}
	return &LogRecorder{state: state, divat: divat, feed: feed}, nil
}

func (r *LogRecorder) State(line string) {
	r.mu.Lock()
	fmt.Fprintln(r.state, line)
	r.mu.Unlock()
	if r.feed != nil {
		r.feed.Publish(line)
	}
}

func (r *LogRecorder) Divat(line string) {
	r.mu.Lock()
	fmt.Fprintln(r.divat, line)
	r.mu.Unlock()
}

// Sync flushes both logs to disk.
func (r *LogRecorder) Sync() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.state.Sync(); err != nil {
		return err
	}
	return r.divat.Sync()
}

func (r *LogRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.state.Close()
	if derr := r.divat.Close(); err == nil {
		err = derr
	}
	return err
}
