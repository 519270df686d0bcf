// Package session is the host-facing facade. It wires the monitoring
// bridge, history reconciler, view selector, action list and context menu
// together over a single backend connection.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.klb.dev/clipone/internal/actions"
	"go.klb.dev/clipone/internal/entry"
	"go.klb.dev/clipone/internal/history"
	"go.klb.dev/clipone/internal/menu"
	"go.klb.dev/clipone/internal/monitor"
)

var (
	// ErrNoMenu is returned by menu operations while no menu is open.
	ErrNoMenu = errors.New("session: no menu open")
	// ErrEntryNotFound is returned for ids not in the reconciled list.
	ErrEntryNotFound = errors.New("session: entry not found")
	// ErrNotApplicable is returned when an action does not match the
	// menu's entry in its current format.
	ErrNotApplicable = errors.New("session: action does not apply to entry")
)

// Backend is every external boundary the session consumes.
type Backend interface {
	monitor.Commander
	monitor.Subscriber
	history.Fetcher
	actions.Host
}

// ActionSource is the read-only configuration boundary.
type ActionSource interface {
	Descriptors() ([]actions.Descriptor, error)
}

// StaticActions is an ActionSource over a fixed descriptor list.
type StaticActions []actions.Descriptor

func (s StaticActions) Descriptors() ([]actions.Descriptor, error) { return s, nil }

// Options configures a Session. Zero values take package defaults.
type Options struct {
	HistoryLimit int
	Interval     time.Duration
	Padding      float64
	MenuSize     menu.Size

	// OnUpdate is called with the content of every pushed entry.
	OnUpdate monitor.UpdateFunc
	// OnChange is called with the reconciled list after every change.
	OnChange func([]entry.Entry)
}

// Session is safe for concurrent use.
type Session struct {
	backend  Backend
	source   ActionSource
	bridge   *monitor.Bridge
	history  *history.Reconciler
	selector *entry.Selector
	onUpdate monitor.UpdateFunc
	padding  float64
	box      menu.Size

	mu      sync.Mutex
	actions []*actions.Action
	menu    menu.State
}

// New builds a session. Nothing is fetched until Load.
func New(b Backend, src ActionSource, opts Options) *Session {
	s := &Session{
		backend:  b,
		source:   src,
		selector: entry.NewSelector(),
		onUpdate: opts.OnUpdate,
		padding:  opts.Padding,
		box:      opts.MenuSize,
	}
	if s.padding <= 0 {
		s.padding = menu.DefaultPadding
	}
	if s.box.W <= 0 || s.box.H <= 0 {
		s.box = menu.Size{W: menu.DefaultWidth, H: menu.DefaultHeight}
	}

	onChange := opts.OnChange
	s.history = history.New(b,
		history.WithLimit(opts.HistoryLimit),
		history.OnChange(func(list []entry.Entry) {
			ids := make([]string, len(list))
			for i, e := range list {
				ids[i] = e.ID
			}
			s.selector.Retain(ids)
			if onChange != nil {
				onChange(list)
			}
		}),
	)
	s.bridge = monitor.New(b, b, monitor.Options{
		Interval: opts.Interval,
		Recorder: s.history,
		OnResync: s.resync,
	})
	return s
}

// Load reads the enabled actions and reloads the history.
func (s *Session) Load(ctx context.Context) error {
	if err := s.ReloadActions(); err != nil {
		return err
	}
	if err := s.history.Reload(ctx); err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	return nil
}

// ReloadActions re-reads the descriptors and adapts the enabled ones.
func (s *Session) ReloadActions() error {
	ds, err := s.source.Descriptors()
	if err != nil {
		return fmt.Errorf("load actions: %w", err)
	}
	adapted := actions.AdaptAll(ds, s.backend)

	s.mu.Lock()
	s.actions = adapted
	s.mu.Unlock()

	slog.Debug("actions loaded", "configured", len(ds), "enabled", len(adapted))
	return nil
}

// Start begins monitoring. See monitor.Bridge.Start.
func (s *Session) Start(ctx context.Context) error {
	return s.bridge.Start(ctx, s.onUpdate)
}

// Stop ends monitoring. See monitor.Bridge.Stop.
func (s *Session) Stop(ctx context.Context) error {
	return s.bridge.Stop(ctx)
}

func (s *Session) Status() monitor.Status { return s.bridge.Status() }

// Entries returns the reconciled list, newest first.
func (s *Session) Entries() []entry.Entry { return s.history.Entries() }

// Actions returns the adapted, enabled actions.
func (s *Session) Actions() []*actions.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*actions.Action(nil), s.actions...)
}

// SelectFormat switches the displayed format of entry id.
func (s *Session) SelectFormat(id, format string) error {
	e, ok := s.history.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	if !s.selector.Select(e, format) {
		return fmt.Errorf("session: entry %s has no %s representation", id, format)
	}
	return nil
}

// View returns the displayed format and content of entry id.
func (s *Session) View(id string) (entry.View, error) {
	e, ok := s.history.Get(id)
	if !ok {
		return entry.View{}, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	return s.selector.Resolve(e), nil
}

// OpenMenu opens the context menu for entry id at anchor.
func (s *Session) OpenMenu(id string, anchor menu.Point, viewport menu.Size) (menu.State, error) {
	e, ok := s.history.Get(id)
	if !ok {
		return menu.State{}, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.menu.Open(e, anchor, s.box, viewport, s.padding)
	return s.menu, nil
}

// Menu returns the current context menu state.
func (s *Session) Menu() menu.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.menu
}

// MenuBody resolves the actions shown in the open menu.
func (s *Session) MenuBody(query string, showAll bool) (actions.Menu, error) {
	item, all, err := s.menuTarget()
	if err != nil {
		return actions.Menu{}, err
	}
	return actions.Resolve(s.selector.Resolve(item), all, query, showAll), nil
}

// Execute runs actionID against the open menu's entry in its displayed
// format, then closes the menu.
func (s *Session) Execute(ctx context.Context, actionID string) (actions.Result, error) {
	item, all, err := s.menuTarget()
	if err != nil {
		return actions.Result{}, err
	}
	a, ok := actions.Find(all, actionID)
	if !ok {
		return actions.Result{}, fmt.Errorf("%w: %s", actions.ErrUnknownAction, actionID)
	}
	view := s.selector.Resolve(item)
	if !a.Matches(view.Content, view.Format) {
		return actions.Result{}, fmt.Errorf("%w: %s on %s", ErrNotApplicable, actionID, view.Format)
	}

	res, err := a.Execute(ctx, view.Content)
	s.CloseMenu()
	if err != nil {
		return res, err
	}
	slog.Debug("action executed", "action", actionID, "entry", item.ID)
	return res, nil
}

// CloseMenu hides the context menu.
func (s *Session) CloseMenu() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.menu.Close()
}

// Run reconciles the monitoring state until ctx is done or Close is called.
func (s *Session) Run(ctx context.Context) error {
	return s.bridge.Run(ctx)
}

// Close unsubscribes and stops monitoring, swallowing failures.
func (s *Session) Close(ctx context.Context) {
	s.bridge.Close(ctx)
	s.CloseMenu()
}

func (s *Session) menuTarget() (entry.Entry, []*actions.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.menu.Visible || s.menu.Item == nil {
		return entry.Entry{}, nil, ErrNoMenu
	}
	return *s.menu.Item, s.actions, nil
}

func (s *Session) resync(ctx context.Context) {
	if err := s.history.Reload(ctx); err != nil {
		slog.Warn("history reload failed", "err", err)
	}
}
