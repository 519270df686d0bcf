// Package history merges pushed clipboard entries into the displayed list
// and reloads it from the external store when the list may be stale.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"go.klb.dev/clipone/internal/entry"
)

// DefaultLimit is how many entries a reload fetches when none is configured.
const DefaultLimit = 100

// Fetcher is the history store boundary.
type Fetcher interface {
	FetchHistory(ctx context.Context, limit int) ([]entry.Entry, error)
}

// Merge returns list with e prepended, unless an entry with the same id or
// the same content is already present. The second result reports whether e
// was added. list is never modified.
//
// Two distinct captures of identical text collapse into one entry.
func Merge(e entry.Entry, list []entry.Entry) ([]entry.Entry, bool) {
	dup := slices.ContainsFunc(list, func(x entry.Entry) bool {
		return x.ID == e.ID || x.Content == e.Content
	})
	if dup {
		return list, false
	}
	out := make([]entry.Entry, 0, len(list)+1)
	out = append(out, e)
	return append(out, list...), true
}

// Reconciler owns the displayed entry list.
type Reconciler struct {
	fetch    Fetcher
	limit    int
	onChange func([]entry.Entry)

	mu      sync.RWMutex
	entries []entry.Entry
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLimit sets the reload size and caps the list after merges.
func WithLimit(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.limit = n
		}
	}
}

// OnChange registers fn to run with the new list after every change.
func OnChange(fn func([]entry.Entry)) Option {
	return func(r *Reconciler) { r.onChange = fn }
}

// New returns an empty Reconciler backed by fetch.
func New(fetch Fetcher, opts ...Option) *Reconciler {
	r := &Reconciler{fetch: fetch, limit: DefaultLimit}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Merge adds a pushed entry to the front of the list unless it duplicates
// one already shown.
func (r *Reconciler) Merge(e entry.Entry) bool {
	r.mu.Lock()
	next, added := Merge(e, r.entries)
	if !added {
		r.mu.Unlock()
		slog.Debug("dropping duplicate entry", "entry", e.ID)
		return false
	}
	if len(next) > r.limit {
		next = next[:r.limit]
	}
	r.entries = next
	snap := slices.Clone(next)
	r.mu.Unlock()

	r.changed(snap)
	return true
}

// Reload replaces the list with a fresh fetch. On error the current list is
// kept.
func (r *Reconciler) Reload(ctx context.Context) error {
	list, err := r.fetch.FetchHistory(ctx, r.limit)
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}

	r.mu.Lock()
	r.entries = dedupe(list)
	snap := slices.Clone(r.entries)
	r.mu.Unlock()

	slog.Debug("history reloaded", "entries", len(snap))
	r.changed(snap)
	return nil
}

// Entries returns a copy of the current list, newest first.
func (r *Reconciler) Entries() []entry.Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.entries)
}

// Get returns the entry with id.
func (r *Reconciler) Get(id string) (entry.Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := slices.IndexFunc(r.entries, func(e entry.Entry) bool { return e.ID == id })
	if i < 0 {
		return entry.Entry{}, false
	}
	return r.entries[i], true
}

// Len returns the number of entries shown.
func (r *Reconciler) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Reconciler) changed(list []entry.Entry) {
	if r.onChange != nil {
		r.onChange(list)
	}
}

// dedupe drops repeated ids from a fetched list so ids stay unique in the
// displayed list. The first occurrence wins.
func dedupe(list []entry.Entry) []entry.Entry {
	seen := make(map[string]struct{}, len(list))
	out := make([]entry.Entry, 0, len(list))
	for _, e := range list {
		if _, ok := seen[e.ID]; ok {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	return out
}
