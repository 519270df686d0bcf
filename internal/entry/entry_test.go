package entry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func htmlEntry() Entry {
	return Entry{
		ID:            "e1",
		PrimaryFormat: "text/html",
		Formats:       Formats{"text/html", "text/plain"},
		Contents: Contents{
			"text/html":  "<b>hi</b>",
			"text/plain": "hi",
		},
		Content: "<b>hi</b>",
	}
}

func TestSelectorDefaultsToPrimary(t *testing.T) {
	s := NewSelector()
	v := s.Resolve(htmlEntry())
	assert.Equal(t, View{Format: "text/html", Content: "<b>hi</b>"}, v)
}

func TestSelectorSelect(t *testing.T) {
	s := NewSelector()
	e := htmlEntry()

	require.True(t, s.Select(e, "text/plain"))
	assert.Equal(t, View{Format: "text/plain", Content: "hi"}, s.Resolve(e))

	// Idempotent.
	require.True(t, s.Select(e, "text/plain"))
	assert.Equal(t, View{Format: "text/plain", Content: "hi"}, s.Resolve(e))
	assert.Equal(t, 1, s.Len())

	// Back to primary clears the selection.
	require.True(t, s.Select(e, "text/html"))
	_, ok := s.Selected(e.ID)
	assert.False(t, ok)
}

func TestSelectorRejectsUnknownFormat(t *testing.T) {
	s := NewSelector()
	e := htmlEntry()
	assert.False(t, s.Select(e, "image/png"))
	_, ok := s.Selected(e.ID)
	assert.False(t, ok)
}

func TestSelectorMissingContentFallsBack(t *testing.T) {
	s := NewSelector()
	e := htmlEntry()
	e.Formats = append(e.Formats, "text/rtf")

	require.True(t, s.Select(e, "text/rtf"))
	v := s.Resolve(e)
	assert.Equal(t, "text/rtf", v.Format)
	assert.Equal(t, e.Content, v.Content)
}

func TestSelectorStaleSelection(t *testing.T) {
	s := NewSelector()
	e := htmlEntry()
	require.True(t, s.Select(e, "text/plain"))

	refreshed := e
	refreshed.Formats = Formats{"text/html"}
	refreshed.Contents = Contents{"text/html": "<b>hi</b>"}

	v := s.Resolve(refreshed)
	assert.Equal(t, View{Format: "text/html", Content: "<b>hi</b>"}, v)
}

func TestSelectorRetain(t *testing.T) {
	s := NewSelector()
	a, b := htmlEntry(), htmlEntry()
	b.ID = "e2"
	s.Select(a, "text/plain")
	s.Select(b, "text/plain")

	s.Retain([]string{"e1"})
	_, ok := s.Selected("e2")
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())
	_, ok = s.Selected("e1")
	assert.True(t, ok)
}

func TestContentForKeepsPresentEmptyContent(t *testing.T) {
	e := Entry{
		ID:            "x",
		PrimaryFormat: "text/html",
		Formats:       Formats{"text/html", "text/plain"},
		Contents:      Contents{"text/html": "<br>", "text/plain": ""},
		Content:       "<br>",
	}
	assert.Equal(t, "", e.ContentFor("text/plain"))
	assert.Equal(t, "<br>", e.ContentFor("text/rtf"))
}

func TestEntryWithoutFormats(t *testing.T) {
	e := Entry{ID: "x", PrimaryFormat: "text/plain", Content: "abc"}
	assert.Equal(t, []string{"text/plain"}, e.AvailableFormats())
	assert.Equal(t, "abc", e.ContentFor("text/plain"))
	assert.Equal(t, "text", string(e.Category()))
}

func TestUnmarshalObjectContents(t *testing.T) {
	raw := `{"id":"1","primary_format":"text/plain","content":"a",
		"available_formats":["text/plain","text/html"],
		"format_contents":{"text/plain":"a","text/html":"<p>a</p>"}}`
	var e Entry
	require.NoError(t, json.Unmarshal([]byte(raw), &e))
	assert.Equal(t, Formats{"text/plain", "text/html"}, e.Formats)
	assert.Equal(t, "<p>a</p>", e.ContentFor("text/html"))
}

func TestUnmarshalQuotedContents(t *testing.T) {
	raw := `{"id":"1","primary_format":"text/plain","content":"a",
		"available_formats":"[\"text/plain\",\"text/html\"]",
		"format_contents":"{\"text/html\":\"<p>a</p>\"}"}`
	var e Entry
	require.NoError(t, json.Unmarshal([]byte(raw), &e))
	assert.Len(t, e.Formats, 2)
	assert.Equal(t, "<p>a</p>", e.ContentFor("text/html"))
}

func TestUnmarshalMalformedContentsDegrades(t *testing.T) {
	raw := `{"id":"1","primary_format":"text/html","content":"fallback",
		"available_formats":"not json",
		"format_contents":"{broken"}`
	var e Entry
	require.NoError(t, json.Unmarshal([]byte(raw), &e))
	assert.Nil(t, e.Contents)
	assert.Equal(t, []string{"text/html"}, e.AvailableFormats())
	assert.Equal(t, "fallback", e.ContentFor("text/html"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab…", Truncate("abc", 2))
	assert.Equal(t, "日本…", Truncate("日本語", 2))
}
