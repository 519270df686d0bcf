package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/clipone/internal/actions"
	"go.klb.dev/clipone/internal/category"
	"go.klb.dev/clipone/internal/entry"
	"go.klb.dev/clipone/internal/menu"
	"go.klb.dev/clipone/internal/monitor"
)

type fakeSub struct {
	ch   chan entry.Entry
	once sync.Once
}

func (s *fakeSub) Entries() <-chan entry.Entry { return s.ch }

func (s *fakeSub) Close() error {
	s.once.Do(func() { close(s.ch) })
	return nil
}

type fakeBackend struct {
	mu        sync.Mutex
	active    bool
	startErr  error
	history   []entry.Entry
	fetches   int
	sub       *fakeSub
	clipboard []string
	opened    []string
}

func (f *fakeBackend) StartCapture(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.active = true
	return nil
}

func (f *fakeBackend) StopCapture(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = false
	return nil
}

func (f *fakeBackend) QueryActive(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active, nil
}

func (f *fakeBackend) Subscribe(context.Context) (monitor.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sub = &fakeSub{ch: make(chan entry.Entry, 8)}
	return f.sub, nil
}

func (f *fakeBackend) FetchHistory(_ context.Context, limit int) ([]entry.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	list := append([]entry.Entry(nil), f.history...)
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (f *fakeBackend) WriteSystemClipboard(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clipboard = append(f.clipboard, text)
	return nil
}

func (f *fakeBackend) OpenExternalURL(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, url)
	return nil
}

func (f *fakeBackend) push(e entry.Entry) {
	f.mu.Lock()
	s := f.sub
	f.mu.Unlock()
	s.ch <- e
}

func (f *fakeBackend) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

var (
	urlEntry = entry.Entry{
		ID:            "u",
		PrimaryFormat: category.FormatPlain,
		Content:       "https://example.com/a b",
	}
	htmlEntry = entry.Entry{
		ID:            "h",
		PrimaryFormat: category.FormatHTML,
		Formats:       entry.Formats{category.FormatHTML, category.FormatPlain},
		Contents: entry.Contents{
			category.FormatHTML:  "<b>Bold</b>",
			category.FormatPlain: "Bold",
		},
		Content: "<b>Bold</b>",
	}
)

func newSession(t *testing.T, b *fakeBackend) *Session {
	t.Helper()
	s := New(b, StaticActions(actions.Defaults()), Options{Interval: time.Hour})
	require.NoError(t, s.Load(context.Background()))
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func TestLoadAdaptsEnabledActionsAndFetchesHistory(t *testing.T) {
	b := &fakeBackend{history: []entry.Entry{urlEntry, htmlEntry}}
	s := newSession(t, b)

	assert.Len(t, s.Entries(), 2)
	for _, a := range s.Actions() {
		assert.True(t, a.Descriptor().Enabled, a.ID())
	}
	_, found := actions.Find(s.Actions(), "summarize")
	assert.False(t, found)
}

func TestLoadActionSourceError(t *testing.T) {
	s := New(&fakeBackend{}, failingSource{}, Options{})
	assert.ErrorContains(t, s.Load(context.Background()), "load actions")
}

type failingSource struct{}

func (failingSource) Descriptors() ([]actions.Descriptor, error) { return nil, errors.New("broken") }

func TestStartRecordsPushedEntries(t *testing.T) {
	b := &fakeBackend{history: []entry.Entry{htmlEntry}}
	var (
		mu      sync.Mutex
		updates []string
	)
	s := New(b, StaticActions(actions.Defaults()), Options{
		Interval: time.Hour,
		OnUpdate: func(c string) {
			mu.Lock()
			updates = append(updates, c)
			mu.Unlock()
		},
	})
	require.NoError(t, s.Load(context.Background()))
	defer s.Close(context.Background())

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, monitor.Active, s.Status().State)

	b.push(urlEntry)
	require.Eventually(t, func() bool { return len(s.Entries()) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, "u", s.Entries()[0].ID)

	// Same content under a new id is dropped.
	dup := urlEntry
	dup.ID = "u2"
	b.push(dup)
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, s.Entries(), 2)

	mu.Lock()
	assert.Equal(t, []string{urlEntry.Content, urlEntry.Content}, updates)
	mu.Unlock()

	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, monitor.Stopped, s.Status().State)
}

func TestFailedStartReloadsHistory(t *testing.T) {
	b := &fakeBackend{startErr: errors.New("daemon gone")}
	s := newSession(t, b)
	before := b.fetchCount()

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, monitor.Stopped, s.Status().State)
	assert.Contains(t, s.Status().Err, "daemon gone")
	assert.Equal(t, before+1, b.fetchCount())
}

func TestSelectFormatAndView(t *testing.T) {
	b := &fakeBackend{history: []entry.Entry{htmlEntry}}
	s := newSession(t, b)

	v, err := s.View("h")
	require.NoError(t, err)
	assert.Equal(t, entry.View{Format: category.FormatHTML, Content: "<b>Bold</b>"}, v)

	require.NoError(t, s.SelectFormat("h", category.FormatPlain))
	v, err = s.View("h")
	require.NoError(t, err)
	assert.Equal(t, entry.View{Format: category.FormatPlain, Content: "Bold"}, v)

	assert.Error(t, s.SelectFormat("h", category.FormatPNG))
	assert.ErrorIs(t, s.SelectFormat("missing", category.FormatPlain), ErrEntryNotFound)
	_, err = s.View("missing")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestSelectionsPrunedOnReload(t *testing.T) {
	b := &fakeBackend{history: []entry.Entry{htmlEntry}}
	s := newSession(t, b)
	require.NoError(t, s.SelectFormat("h", category.FormatPlain))
	assert.Equal(t, 1, s.selector.Len())

	b.mu.Lock()
	b.history = []entry.Entry{urlEntry}
	b.mu.Unlock()
	require.NoError(t, s.Load(context.Background()))
	assert.Zero(t, s.selector.Len())
}

func TestMenuLifecycle(t *testing.T) {
	b := &fakeBackend{history: []entry.Entry{urlEntry}}
	s := newSession(t, b)

	_, err := s.MenuBody("", false)
	assert.ErrorIs(t, err, ErrNoMenu)
	_, err = s.Execute(context.Background(), actions.BuiltinCopy)
	assert.ErrorIs(t, err, ErrNoMenu)

	st, err := s.OpenMenu("u", menu.Point{X: 790, Y: 590}, menu.Size{W: 800, H: 600})
	require.NoError(t, err)
	assert.True(t, st.Visible)
	assert.Equal(t, menu.Point{X: 590, Y: 290}, st.Pos)

	body, err := s.MenuBody("", false)
	require.NoError(t, err)
	require.Len(t, body.Visible, 3)
	assert.Equal(t, "copy", body.Visible[0].ID())
	assert.True(t, body.HasMore)

	body, err = s.MenuBody("", true)
	require.NoError(t, err)
	assert.False(t, body.HasMore)
	assert.Greater(t, len(body.Visible), 3)

	s.CloseMenu()
	assert.False(t, s.Menu().Visible)

	_, err = s.OpenMenu("missing", menu.Point{}, menu.Size{W: 800, H: 600})
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestExecuteURLTemplateAndClosesMenu(t *testing.T) {
	b := &fakeBackend{history: []entry.Entry{urlEntry}}
	s := newSession(t, b)
	_, err := s.OpenMenu("u", menu.Point{X: 10, Y: 10}, menu.Size{W: 800, H: 600})
	require.NoError(t, err)

	res, err := s.Execute(context.Background(), "search")
	require.NoError(t, err)
	require.Len(t, b.opened, 1)
	assert.Contains(t, b.opened[0], "https%3A%2F%2Fexample.com%2Fa%20b")
	assert.Equal(t, b.opened[0], res.Opened)
	assert.False(t, s.Menu().Visible)
}

func TestExecuteUsesDisplayedFormat(t *testing.T) {
	b := &fakeBackend{history: []entry.Entry{htmlEntry}}
	s := newSession(t, b)
	require.NoError(t, s.SelectFormat("h", category.FormatPlain))
	_, err := s.OpenMenu("h", menu.Point{X: 10, Y: 10}, menu.Size{W: 800, H: 600})
	require.NoError(t, err)

	_, err = s.Execute(context.Background(), actions.BuiltinCopy)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bold"}, b.clipboard)
}

func TestExecuteRejectsUnknownAndInapplicable(t *testing.T) {
	b := &fakeBackend{history: []entry.Entry{htmlEntry}}
	s := newSession(t, b)
	_, err := s.OpenMenu("h", menu.Point{X: 10, Y: 10}, menu.Size{W: 800, H: 600})
	require.NoError(t, err)

	_, err = s.Execute(context.Background(), "nope")
	assert.ErrorIs(t, err, actions.ErrUnknownAction)

	_, err = s.Execute(context.Background(), actions.BuiltinOpenURL)
	assert.ErrorIs(t, err, ErrNotApplicable)
	assert.True(t, s.Menu().Visible)
}

func TestRunEndsOnClose(t *testing.T) {
	b := &fakeBackend{}
	s := New(b, StaticActions(nil), Options{Interval: time.Millisecond})
	require.NoError(t, s.Load(context.Background()))

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()
	time.Sleep(5 * time.Millisecond)
	s.Close(context.Background())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}
