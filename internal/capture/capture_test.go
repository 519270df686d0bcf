package capture

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/clipone/internal/category"
	"go.klb.dev/clipone/internal/clip"
	"go.klb.dev/clipone/internal/entry"
	"go.klb.dev/clipone/internal/hub"
)

type memStore struct {
	mu    sync.Mutex
	saved []entry.Entry
}

func (m *memStore) Save(_ context.Context, e entry.Entry) (entry.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = string(rune('a' + len(m.saved)))
	m.saved = append(m.saved, e)
	return e, nil
}

func (m *memStore) RecentContains(_ context.Context, content string, n int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.saved) - 1; i >= 0 && i >= len(m.saved)-n; i-- {
		if m.saved[i].Content == content {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

func TestSnapshotPriority(t *testing.T) {
	now := time.UnixMilli(42)
	e, ok := Snapshot([]clip.Item{
		clip.Text("plain"),
		{MIME: category.FormatHTML, Data: []byte("<b>rich</b>")},
	}, "test", now)
	require.True(t, ok)
	assert.Equal(t, category.FormatHTML, e.PrimaryFormat)
	assert.Equal(t, "<b>rich</b>", e.Content)
	assert.Equal(t, "plain", e.ContentFor(category.FormatPlain))
	assert.Equal(t, int64(42), e.Timestamp)
	assert.Equal(t, "test", e.SourceApp)
}

func TestSnapshotHTMLOnlyGetsPlainText(t *testing.T) {
	e, ok := Snapshot([]clip.Item{{MIME: category.FormatHTML, Data: []byte("<p>Hello <i>there</i></p>")}}, "", time.Now())
	require.True(t, ok)
	assert.True(t, e.HasFormat(category.FormatPlain))
	assert.Equal(t, "Hello there", e.ContentFor(category.FormatPlain))
}

func TestSnapshotImage(t *testing.T) {
	e, ok := Snapshot([]clip.Item{{MIME: category.FormatPNG, Data: []byte{0x89, 'P', 'N', 'G'}}}, "", time.Now())
	require.True(t, ok)
	assert.Equal(t, category.FormatPNG, e.PrimaryFormat)
	assert.Equal(t, "data:image/png;base64,iVBORw==", e.Content)
	assert.Equal(t, category.Image, e.Category())
}

func TestSnapshotRefinesText(t *testing.T) {
	e, ok := Snapshot([]clip.Item{clip.Text("https://example.com")}, "", time.Now())
	require.True(t, ok)
	assert.Equal(t, category.FormatURIList, e.PrimaryFormat)
	assert.Equal(t, []string{category.FormatURIList, category.FormatPlain}, e.AvailableFormats())
	assert.Equal(t, "https://example.com", e.ContentFor(category.FormatPlain))
}

func TestSnapshotEmpty(t *testing.T) {
	_, ok := Snapshot(nil, "", time.Now())
	assert.False(t, ok)
	_, ok = Snapshot([]clip.Item{clip.Text("   \n")}, "", time.Now())
	assert.False(t, ok)
}

func TestRefineTextFormat(t *testing.T) {
	tests := map[string]string{
		"http://a.test":             category.FormatURIList,
		"https://a.test":            category.FormatURIList,
		"data:image/png;base64,AA":  category.FormatPNG,
		"data:text/plain,hi":        "application/octet-stream",
		"<html><body>x</body>":      category.FormatHTML,
		`{\rtf1\ansi hi}`:           category.FormatRTF,
		"/usr/local/bin":            category.FormatFilePath,
		`C:\Users\me`:               category.FormatFilePath,
		`share\folder`:              category.FormatFilePath,
		"just words":                category.FormatPlain,
		"ftp://not-detected.test/x": category.FormatPlain,
	}
	for in, want := range tests {
		assert.Equal(t, want, RefineTextFormat(in), in)
	}
}

func newService(t *testing.T) (*Service, *clip.Memory, *memStore, *hub.Subscription) {
	t.Helper()
	mem := clip.NewMemory()
	st := &memStore{}
	h := hub.New()
	sub := h.Subscribe(8)
	t.Cleanup(func() { sub.Close() })
	svc := New(mem, st, h, "test")
	t.Cleanup(svc.Close)
	return svc, mem, st, sub
}

func TestServiceCapturesAndPublishes(t *testing.T) {
	svc, mem, st, sub := newService(t)
	require.NoError(t, svc.Start(context.Background()))
	require.NoError(t, svc.Start(context.Background()))
	assert.True(t, svc.Active())

	mem.Set(clip.Text("first"))

	select {
	case e := <-sub.Entries():
		assert.Equal(t, "first", e.Content)
		assert.NotEmpty(t, e.ID)
	case <-time.After(time.Second):
		t.Fatal("no entry published")
	}
	assert.Equal(t, 1, st.len())
}

func TestServiceSkipsDuplicatesAndOwnWrites(t *testing.T) {
	svc, mem, st, _ := newService(t)
	require.NoError(t, svc.Start(context.Background()))

	mem.Set(clip.Text("a"))
	require.Eventually(t, func() bool { return st.len() == 1 }, time.Second, time.Millisecond)

	mem.Set(clip.Text("b"))
	require.Eventually(t, func() bool { return st.len() == 2 }, time.Second, time.Millisecond)

	// "a" is still among the recent entries.
	mem.Set(clip.Text("a"))
	require.NoError(t, svc.WriteClipboard(context.Background(), "written"))
	mem.Set(clip.Text("c"))
	require.Eventually(t, func() bool { return st.len() == 3 }, time.Second, time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 3, st.len())
	st.mu.Lock()
	assert.Equal(t, "c", st.saved[2].Content)
	st.mu.Unlock()
}

func TestServiceStopHaltsCapture(t *testing.T) {
	svc, mem, st, _ := newService(t)
	require.NoError(t, svc.Start(context.Background()))
	require.NoError(t, svc.Stop(context.Background()))
	require.NoError(t, svc.Stop(context.Background()))
	assert.False(t, svc.Active())

	mem.Set(clip.Text("ignored"))
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, st.len())

	status := svc.Status()
	assert.False(t, status.Active)
	assert.Equal(t, "memory", status.Backend)
	assert.Equal(t, "test", status.Source)
}
