package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is the reconciliation period when Options.Interval is zero.
const DefaultInterval = 3 * time.Second

// Options configures a Bridge.
type Options struct {
	// Interval between reconciliation ticks. Starting and Stopping are only
	// corrected once they have been pending for longer than this.
	Interval time.Duration

	// Recorder receives every pushed entry. May be nil.
	Recorder Recorder

	// OnResync runs after a failed start and after reconciliation corrected
	// the state, so the owner can reload history. May be nil.
	OnResync func(ctx context.Context)
}

// Bridge owns the monitoring state. All methods are safe for concurrent use.
//
// Every transition bumps a generation counter. Work that suspended on an
// external call only writes its result back if the generation is unchanged,
// so a superseded start or stop never overwrites newer state.
type Bridge struct {
	cmd      Commander
	sub      Subscriber
	rec      Recorder
	interval time.Duration
	onResync func(ctx context.Context)

	mu       sync.Mutex
	state    State
	err      string
	last     string
	since    time.Time
	gen      uint64
	current  Subscription
	onUpdate UpdateFunc
	closed   bool
	done     chan struct{}
}

// New returns a Bridge in the Stopped state.
func New(cmd Commander, sub Subscriber, opts Options) *Bridge {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Bridge{
		cmd:      cmd,
		sub:      sub,
		rec:      opts.Recorder,
		interval: opts.Interval,
		onResync: opts.OnResync,
		state:    Stopped,
		since:    time.Now(),
		done:     make(chan struct{}),
	}
}

// Status returns a snapshot of the current state.
func (b *Bridge) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Status{State: b.state, Err: b.err, LastContent: b.last, Since: b.since}
}

// Active reports whether capture is acknowledged as running.
func (b *Bridge) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == Active
}

// Start subscribes to pushed entries and then asks the capture process to
// start. It is a no-op while Active or Starting. A failed start returns the
// error, records it and leaves the bridge Stopped.
func (b *Bridge) Start(ctx context.Context, onUpdate UpdateFunc) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return errors.New("monitor: bridge closed")
	}
	if b.state == Active || b.state == Starting {
		state := b.state
		b.mu.Unlock()
		slog.Debug("start ignored", "state", state)
		return nil
	}
	b.gen++
	g := b.gen
	b.setLocked(Starting)
	if onUpdate != nil {
		b.onUpdate = onUpdate
	}
	b.mu.Unlock()

	s, err := b.sub.Subscribe(ctx)
	if err != nil {
		return b.failStart(ctx, g, fmt.Errorf("subscribe: %w", err))
	}

	b.mu.Lock()
	if b.gen != g {
		b.mu.Unlock()
		closeSubscription(s)
		return nil
	}
	b.attachLocked(s)
	b.mu.Unlock()

	if err := b.cmd.StartCapture(ctx); err != nil {
		return b.failStart(ctx, g, fmt.Errorf("start capture: %w", err))
	}

	b.mu.Lock()
	if b.gen == g {
		b.setLocked(Active)
		b.err = ""
	}
	b.mu.Unlock()

	slog.Info("monitoring started")
	return nil
}

func (b *Bridge) failStart(ctx context.Context, g uint64, err error) error {
	b.mu.Lock()
	if b.gen != g {
		b.mu.Unlock()
		return err
	}
	b.setLocked(Stopped)
	b.err = err.Error()
	s := b.detachLocked()
	b.mu.Unlock()

	if s != nil {
		closeSubscription(s)
	}
	slog.Warn("monitoring failed to start", "err", err)
	if b.onResync != nil {
		b.onResync(ctx)
	}
	return err
}

// Stop asks the capture process to stop, tears down the subscription and
// returns to Stopped. A failed stop is recorded in Status but never blocks
// the reset, and Stop itself returns nil. It is a no-op while Stopped or
// Stopping.
func (b *Bridge) Stop(ctx context.Context) error {
	b.mu.Lock()
	if b.state == Stopped || b.state == Stopping {
		state := b.state
		b.mu.Unlock()
		slog.Debug("stop ignored", "state", state)
		return nil
	}
	b.gen++
	g := b.gen
	b.setLocked(Stopping)
	b.mu.Unlock()

	stopErr := b.cmd.StopCapture(ctx)

	b.mu.Lock()
	var s Subscription
	if b.gen == g {
		s = b.detachLocked()
	}
	b.mu.Unlock()
	if s != nil {
		closeSubscription(s)
	}

	b.mu.Lock()
	if b.gen == g {
		b.setLocked(Stopped)
		if stopErr != nil {
			b.err = fmt.Sprintf("stop capture: %v", stopErr)
		} else {
			b.err = ""
		}
	}
	b.mu.Unlock()

	if stopErr != nil {
		slog.Warn("monitoring stop failed, state reset anyway", "err", stopErr)
	} else {
		slog.Info("monitoring stopped")
	}
	return nil
}

// Reconcile queries the capture process for ground truth and corrects the
// state without passing through Starting or Stopping. A transition that is
// still pending is left alone until it has been pending for a full interval.
func (b *Bridge) Reconcile(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	state, since, g := b.state, b.since, b.gen
	b.mu.Unlock()

	if (state == Starting || state == Stopping) && time.Since(since) < b.interval {
		return nil
	}

	active, err := b.cmd.QueryActive(ctx)
	if err != nil {
		b.mu.Lock()
		if b.gen == g {
			b.err = fmt.Sprintf("query status: %v", err)
		}
		b.mu.Unlock()
		slog.Debug("reconcile query failed", "err", err)
		return fmt.Errorf("query status: %w", err)
	}

	b.mu.Lock()
	if b.gen != g {
		// A start or stop ran while the query was in flight.
		b.mu.Unlock()
		return nil
	}
	var (
		stale    Subscription
		needSub  bool
		resynced bool
		from     = b.state
	)
	switch {
	case active && b.state != Active:
		b.gen++
		b.setLocked(Active)
		b.err = ""
		needSub = b.current == nil
		resynced = true
	case active && b.current == nil:
		// The push stream ended while capture kept running.
		needSub = true
		resynced = true
	case !active && b.state != Stopped:
		b.gen++
		b.setLocked(Stopped)
		b.err = "capture is not running"
		stale = b.detachLocked()
		resynced = true
	}
	g = b.gen
	to := b.state
	b.mu.Unlock()

	if stale != nil {
		closeSubscription(stale)
	}
	if needSub {
		b.resubscribe(ctx, g)
	}
	if resynced {
		slog.Info("monitoring state corrected", "from", from, "to", to)
		if b.onResync != nil {
			b.onResync(ctx)
		}
	}
	return nil
}

func (b *Bridge) resubscribe(ctx context.Context, g uint64) {
	s, err := b.sub.Subscribe(ctx)
	if err != nil {
		b.mu.Lock()
		if b.gen == g {
			b.err = fmt.Sprintf("subscribe: %v", err)
		}
		b.mu.Unlock()
		slog.Warn("resubscribe failed", "err", err)
		return
	}

	b.mu.Lock()
	if b.gen == g && b.current == nil && !b.closed {
		b.attachLocked(s)
		b.err = ""
		s = nil
	}
	b.mu.Unlock()
	if s != nil {
		closeSubscription(s)
	}
}

// Run reconciles every interval until ctx is done or the bridge is closed.
func (b *Bridge) Run(ctx context.Context) error {
	t := time.NewTicker(b.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.done:
			return nil
		case <-t.C:
			_ = b.Reconcile(ctx)
		}
	}
}

// Close tears the bridge down: it unsubscribes first, then stops capture
// unless already Stopped. Failures are logged, never returned. Close also
// ends Run and is safe to call more than once.
func (b *Bridge) Close(ctx context.Context) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.done)
	b.gen++
	s := b.detachLocked()
	state := b.state
	b.setLocked(Stopped)
	b.mu.Unlock()

	if s != nil {
		closeSubscription(s)
	}
	if state != Stopped {
		if err := b.cmd.StopCapture(ctx); err != nil {
			slog.Debug("stop on teardown failed", "err", err)
		}
	}
}

func (b *Bridge) setLocked(s State) {
	b.state = s
	b.since = time.Now()
}

func (b *Bridge) attachLocked(s Subscription) {
	b.current = s
	go b.pump(s)
}

func (b *Bridge) detachLocked() Subscription {
	s := b.current
	b.current = nil
	return s
}

// pump delivers entries from s until its channel closes. Entries that arrive
// after s was detached are drained and dropped. A subscription that ends on
// its own has its Err, if it reports one, recorded on the status.
func (b *Bridge) pump(s Subscription) {
	for e := range s.Entries() {
		b.mu.Lock()
		if b.current != s {
			b.mu.Unlock()
			continue
		}
		b.last = e.Content
		fn := b.onUpdate
		b.mu.Unlock()

		slog.Debug("entry pushed", "entry", e.ID, "preview", e.Preview(120))
		if fn != nil {
			fn(e.Content)
		}
		if b.rec != nil {
			b.rec.Merge(e)
		}
	}

	var err error
	if se, ok := s.(interface{ Err() error }); ok {
		err = se.Err()
	}

	b.mu.Lock()
	ended := b.current == s
	if ended {
		b.current = nil
		if err != nil {
			b.err = fmt.Sprintf("push stream: %v", err)
		}
	}
	b.mu.Unlock()

	if ended {
		slog.Warn("push stream ended, resubscribing on next reconcile", "err", err)
	}
}

func closeSubscription(s Subscription) {
	if err := s.Close(); err != nil {
		slog.Debug("close subscription", "err", err)
	}
}
