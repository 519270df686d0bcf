package history

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/clipone/internal/entry"
)

type fakeFetcher struct {
	list  []entry.Entry
	err   error
	limit int
}

func (f *fakeFetcher) FetchHistory(_ context.Context, limit int) ([]entry.Entry, error) {
	f.limit = limit
	return f.list, f.err
}

func e(id, content string) entry.Entry { return entry.Entry{ID: id, Content: content} }

func TestMergePrepends(t *testing.T) {
	list := []entry.Entry{e("1", "a")}
	out, added := Merge(e("2", "b"), list)
	assert.True(t, added)
	assert.Equal(t, []entry.Entry{e("2", "b"), e("1", "a")}, out)
	assert.Len(t, list, 1)
}

func TestMergeDropsSameID(t *testing.T) {
	list := []entry.Entry{e("1", "a"), e("2", "b")}
	out, added := Merge(e("2", "changed"), list)
	assert.False(t, added)
	assert.Equal(t, list, out)
}

func TestMergeDropsSameContent(t *testing.T) {
	list := []entry.Entry{e("1", "a"), e("2", "b")}
	out, added := Merge(e("9", "b"), list)
	assert.False(t, added)
	assert.Len(t, out, 2)
}

func TestReconcilerMergeAndLimit(t *testing.T) {
	var seen [][]entry.Entry
	r := New(&fakeFetcher{}, WithLimit(2), OnChange(func(l []entry.Entry) { seen = append(seen, l) }))

	assert.True(t, r.Merge(e("1", "a")))
	assert.True(t, r.Merge(e("2", "b")))
	assert.True(t, r.Merge(e("3", "c")))
	assert.False(t, r.Merge(e("4", "c")))

	assert.Equal(t, []entry.Entry{e("3", "c"), e("2", "b")}, r.Entries())
	assert.Len(t, seen, 3)

	got, ok := r.Get("2")
	require.True(t, ok)
	assert.Equal(t, "b", got.Content)
	_, ok = r.Get("1")
	assert.False(t, ok)
}

func TestReloadReplacesList(t *testing.T) {
	f := &fakeFetcher{list: []entry.Entry{e("x", "1"), e("y", "2"), e("x", "dup")}}
	r := New(f, WithLimit(50))
	r.Merge(e("old", "old"))

	require.NoError(t, r.Reload(context.Background()))
	assert.Equal(t, 50, f.limit)
	assert.Equal(t, []entry.Entry{e("x", "1"), e("y", "2")}, r.Entries())
}

func TestReloadErrorKeepsList(t *testing.T) {
	f := &fakeFetcher{err: errors.New("store down")}
	r := New(f)
	r.Merge(e("1", "a"))

	assert.ErrorContains(t, r.Reload(context.Background()), "store down")
	assert.Equal(t, 1, r.Len())
}

func TestEntriesIsACopy(t *testing.T) {
	r := New(&fakeFetcher{})
	r.Merge(e("1", "a"))
	l := r.Entries()
	l[0].Content = "mutated"
	got, _ := r.Get("1")
	assert.Equal(t, "a", got.Content)
}
