package session

import (
	"sync"

	"github.com/google/uuid"
)

const feedBuffer = 256

// Feed fans the session's state lines out to live observers. Subscribers
// that fall behind lose lines rather than stalling the engine.
type Feed struct {
	mu   sync.Mutex
	subs map[string]chan string
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{subs: make(map[string]chan string)}
}

// Publish delivers a line to every subscriber without blocking.
func (f *Feed) Publish(line string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- line:
		default:
		}
	}
}

// Subscribe registers an observer and returns its id and line channel.
func (f *Feed) Subscribe() (string, <-chan string) {
	id := uuid.NewString()
	ch := make(chan string, feedBuffer)
	f.mu.Lock()
	f.subs[id] = ch
	f.mu.Unlock()
	return id, ch
}

// Unsubscribe removes an observer and closes its channel.
func (f *Feed) Unsubscribe(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.subs[id]; ok {
		delete(f.subs, id)
		close(ch)
	}
}
