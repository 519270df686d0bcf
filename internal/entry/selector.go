package entry

import "sync"

// View is the format and content currently displayed for an entry.
type View struct {
	Format  string
	Content string
}

// Selector tracks, per entry id, which format is displayed. State is
// created lazily on first interaction.
type Selector struct {
	mu       sync.Mutex
	selected map[string]string
}

// NewSelector returns an empty Selector.
func NewSelector() *Selector {
	return &Selector{selected: make(map[string]string)}
}

// Select records format as the displayed format of e. Formats the entry does
// not offer are ignored and Select reports false. Re-selecting the current
// format is a no-op.
func (s *Selector) Select(e Entry, format string) bool {
	if !e.HasFormat(format) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if format == e.PrimaryFormat {
		// Selecting the primary format is the same as having no selection.
		delete(s.selected, e.ID)
		return true
	}
	s.selected[e.ID] = format
	return true
}

// Selected returns the recorded format for id, if any.
func (s *Selector) Selected(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.selected[id]
	return f, ok
}

// Resolve returns the view for e. A recorded selection that the entry no
// longer offers falls back to the primary format.
func (s *Selector) Resolve(e Entry) View {
	format := e.PrimaryFormat
	if f, ok := s.Selected(e.ID); ok && e.HasFormat(f) {
		format = f
	}
	return View{Format: format, Content: e.ContentFor(format)}
}

// Retain drops state for every id not in ids.
func (s *Selector) Retain(ids []string) {
	keep := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.selected {
		if _, ok := keep[id]; !ok {
			delete(s.selected, id)
		}
	}
}

// Len returns the number of entries with a recorded selection.
func (s *Selector) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.selected)
}
