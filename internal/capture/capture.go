// Package capture is the daemon side of the command boundary: it watches a
// clipboard backend, records new entries and publishes them to the hub.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.klb.dev/clipone/internal/clip"
	"go.klb.dev/clipone/internal/entry"
	"go.klb.dev/clipone/internal/hub"
)

// RecentWindow is how many stored entries new content is compared against.
const RecentWindow = 10

// Store is the persistence the service needs.
type Store interface {
	Save(ctx context.Context, e entry.Entry) (entry.Entry, error)
	RecentContains(ctx context.Context, content string, n int) (bool, error)
}

// Status describes the service for status queries.
type Status struct {
	Active  bool
	Backend string
	Source  string
	Since   time.Time
}

// Service owns the capture loop. Start and Stop are idempotent.
type Service struct {
	backend clip.Backend
	store   Store
	h       *hub.Hub
	source  string

	mu     sync.Mutex
	active bool
	since  time.Time
	last   string
	stop   chan struct{}
	done   chan struct{}
}

// New creates the service but does not start it.
func New(backend clip.Backend, store Store, h *hub.Hub, source string) *Service {
	return &Service{backend: backend, store: store, h: h, source: source}
}

// Start begins capturing. It returns immediately if already active.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return nil
	}
	s.active = true
	s.since = time.Now()
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(s.stop, s.done)

	slog.Info("capture started", "backend", s.backend.Name(), "source", s.source)
	return nil
}

// Stop ends capturing and waits for the loop to exit.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return nil
	}
	s.active = false
	s.since = time.Now()
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	slog.Info("capture stopped")
	return nil
}

// Active reports whether the capture loop is running.
func (s *Service) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Status returns a snapshot of the service.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{Active: s.active, Backend: s.backend.Name(), Source: s.source, Since: s.since}
}

// WriteClipboard replaces the system clipboard with text. The write is not
// captured back as a new entry.
func (s *Service) WriteClipboard(ctx context.Context, text string) error {
	s.mu.Lock()
	s.last = text
	s.mu.Unlock()

	if err := s.backend.Write([]clip.Item{clip.Text(text)}); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	slog.Debug("clipboard written", "preview", entry.Truncate(text, 120))
	return nil
}

// Close stops capturing and releases the backend.
func (s *Service) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.Stop(ctx)
	s.backend.Close()
}

func (s *Service) run(stop, done chan struct{}) {
	defer close(done)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for {
		select {
		case <-stop:
			return
		case _, ok := <-s.backend.Watch():
			if !ok {
				return
			}
			s.captureOnce(ctx)
		}
	}
}

func (s *Service) captureOnce(ctx context.Context) {
	items, err := s.backend.Read()
	if err != nil {
		slog.Error("clipboard read failed", "err", err)
		return
	}
	e, ok := Snapshot(items, s.source, time.Now())
	if !ok {
		return
	}

	s.mu.Lock()
	if e.Content == s.last {
		s.mu.Unlock()
		return
	}
	s.last = e.Content
	s.mu.Unlock()

	dup, err := s.store.RecentContains(ctx, e.Content, RecentWindow)
	if err != nil {
		slog.Warn("duplicate check failed", "err", err)
	} else if dup {
		slog.Debug("skipping recently stored content", "preview", e.Preview(120))
		return
	}

	saved, err := s.store.Save(ctx, e)
	if err != nil {
		slog.Error("save entry failed", "err", err)
		return
	}
	hub.LogEntry("clipboard captured", saved)
	s.h.Publish(saved)
}
