// Package clip provides a unified interface to the system clipboard.
// Build constraints select the implementation:
//
//	desktop.go     polling backend on golang.design/x/clipboard
//	unsupported.go headless fallback for platforms the library lacks
//
// headless.go and memory.go are available everywhere.
package clip

const (
	MIMEText = "text/plain"
	MIMEPNG  = "image/png"
)

// Item is one typed clipboard representation.
type Item struct {
	MIME string
	Data []byte
}

// Text returns a text/plain item.
func Text(s string) Item { return Item{MIME: MIMEText, Data: []byte(s)} }

// Backend is the interface that all clipboard implementations satisfy.
type Backend interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// Read returns the current clipboard contents as typed items.
	// Returns nil, nil if the clipboard is empty or holds only unsupported types.
	Read() ([]Item, error)

	// Write sets the clipboard contents to the provided items.
	Write(items []Item) error

	// Watch returns a channel that receives a signal whenever the clipboard
	// changes. The caller should call Read when it receives from the channel.
	Watch() <-chan struct{}

	// Close releases any resources held by the backend.
	Close()
}
