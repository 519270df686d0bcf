package clip

import (
	"slices"
	"sync"
)

// Memory is an in-process clipboard. Set and Write both replace the contents
// and signal watchers.
type Memory struct {
	mu      sync.Mutex
	items   []Item
	watchCh chan struct{}
}

// NewMemory returns an empty in-memory clipboard.
func NewMemory() *Memory {
	return &Memory{watchCh: make(chan struct{}, 1)}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Read() ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.items), nil
}

func (m *Memory) Write(items []Item) error {
	m.Set(items...)
	return nil
}

// Set replaces the clipboard contents, as if another application copied.
func (m *Memory) Set(items ...Item) {
	m.mu.Lock()
	m.items = slices.Clone(items)
	m.mu.Unlock()
	select {
	case m.watchCh <- struct{}{}:
	default:
	}
}

func (m *Memory) Watch() <-chan struct{} { return m.watchCh }
func (m *Memory) Close()                 {}
