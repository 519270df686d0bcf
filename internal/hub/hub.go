// Package hub implements the daemon's push-event broker. It is
// transport-agnostic: subscribers receive captured entries on a channel in
// publish order.
package hub

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"go.klb.dev/clipone/internal/entry"
)

// DefaultBuffer is the channel size used when Subscribe is given zero.
const DefaultBuffer = 16

// Subscription is one subscriber's view of the hub.
type Subscription struct {
	id   string
	ch   chan entry.Entry
	h    *Hub
	once sync.Once
}

// ID returns the subscription's unique id.
func (s *Subscription) ID() string { return s.id }

// Entries yields published entries until the subscription is closed.
func (s *Subscription) Entries() <-chan entry.Entry { return s.ch }

// Close removes the subscription from the hub and closes its channel.
// Safe to call more than once.
func (s *Subscription) Close() error {
	s.once.Do(func() { s.h.remove(s) })
	return nil
}

// Hub fans captured entries out to all subscribers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]*Subscription
	latest *entry.Entry
}

// New returns an empty Hub.
func New() *Hub {
	return &Hub{subs: make(map[string]*Subscription)}
}

// Subscribe registers a new subscriber with a channel of the given size.
func (h *Hub) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	s := &Subscription{
		id: uuid.NewString(),
		ch: make(chan entry.Entry, buffer),
		h:  h,
	}

	h.mu.Lock()
	h.subs[s.id] = s
	total := len(h.subs)
	h.mu.Unlock()

	slog.Info("subscriber registered", "subscription", s.id, "total", total)
	return s
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	delete(h.subs, s.id)
	close(s.ch)
	total := len(h.subs)
	h.mu.Unlock()

	slog.Info("subscriber unregistered", "subscription", s.id, "total", total)
}

// Publish records e as the latest entry and delivers it to every
// subscriber. Sends never block; a subscriber whose buffer is full misses
// the entry.
func (h *Hub) Publish(e entry.Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = &e
	for _, s := range h.subs {
		select {
		case s.ch <- e:
		default:
			slog.Warn("subscriber channel full, dropping", "subscription", s.id, "entry", e.ID)
		}
	}
}

// Latest returns the most recently published entry.
func (h *Hub) Latest() (entry.Entry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.latest == nil {
		return entry.Entry{}, false
	}
	return *h.latest, true
}

// Subscribers returns the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
