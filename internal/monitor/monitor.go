// Package monitor keeps the foreground's view of whether clipboard capture
// is running consistent with the external capture process.
package monitor

import (
	"context"
	"time"

	"go.klb.dev/clipone/internal/entry"
)

// State is the monitoring state machine's current position.
type State int

const (
	Stopped State = iota
	Starting
	Active
	Stopping
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Active:
		return "active"
	case Stopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Status is a snapshot of the bridge for status indicators.
type Status struct {
	State       State
	Err         string // last failure, empty when the last transition succeeded
	LastContent string // content of the most recent pushed entry
	Since       time.Time
}

// Commander issues requests to the external capture process.
type Commander interface {
	StartCapture(ctx context.Context) error
	StopCapture(ctx context.Context) error
	QueryActive(ctx context.Context) (bool, error)
}

// Subscription yields pushed entries in delivery order until closed. The
// channel is closed when the subscription ends for any reason.
type Subscription interface {
	Entries() <-chan entry.Entry
	Close() error
}

// Subscriber opens push-event subscriptions.
type Subscriber interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

// Recorder receives every pushed entry for history reconciliation.
type Recorder interface {
	Merge(e entry.Entry) bool
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(e entry.Entry) bool

func (f RecorderFunc) Merge(e entry.Entry) bool { return f(e) }

// UpdateFunc is called with the content of each pushed entry.
type UpdateFunc func(content string)
