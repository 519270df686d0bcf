// Package entry defines the clipboard entry delivered by the capture process
// and the per-entry view state kept by the foreground.
package entry

import (
	"encoding/json"
	"log/slog"
	"slices"
	"time"
	"unicode/utf8"

	"go.klb.dev/clipone/internal/category"
)

// Entry is one captured clipboard snapshot. The capture process creates it;
// the foreground never mutates it.
type Entry struct {
	ID            string   `json:"id"`
	PrimaryFormat string   `json:"primary_format"`
	Formats       Formats  `json:"available_formats,omitempty"`
	Contents      Contents `json:"format_contents,omitempty"`
	Content       string   `json:"content"`
	Timestamp     int64    `json:"timestamp"` // unix milliseconds
	SourceApp     string   `json:"source_app,omitempty"`
	Favorite      bool     `json:"is_favorite"`
}

// AvailableFormats returns the formats the entry can be shown in. An entry
// with no declared formats is available in its primary format only.
func (e Entry) AvailableFormats() []string {
	if len(e.Formats) > 0 {
		return e.Formats
	}
	if e.PrimaryFormat == "" {
		return []string{category.FormatPlain}
	}
	return []string{e.PrimaryFormat}
}

// HasFormat reports whether format is one of the entry's available formats.
func (e Entry) HasFormat(format string) bool {
	return slices.Contains(e.AvailableFormats(), format)
}

// ContentFor returns the content stored for format, falling back to the
// default content when the per-format map has no key for it. A present empty
// string is returned as is.
func (e Entry) ContentFor(format string) string {
	if c, ok := e.Contents[format]; ok {
		return c
	}
	return e.Content
}

// Category classifies the entry by its primary format.
func (e Entry) Category() category.Category {
	return category.Classify(e.PrimaryFormat)
}

// Time returns the capture time.
func (e Entry) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Preview returns the default content cut to at most n runes.
func (e Entry) Preview(n int) string {
	return Truncate(e.Content, n)
}

// Truncate cuts s to at most n runes, appending an ellipsis when cut.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}

// Contents maps a format identifier to its content. It decodes either a JSON
// object or a string holding a JSON object, which is how older stores
// persisted it. A payload that fails to parse decodes to an empty map and is
// logged; the entry then falls back to its default content.
type Contents map[string]string

func (c *Contents) UnmarshalJSON(b []byte) error {
	m, err := decodeMaybeQuoted[map[string]string](b)
	if err != nil {
		slog.Warn("malformed format contents, using default content", "err", err)
		*c = nil
		return nil
	}
	*c = m
	return nil
}

// Formats is the list of available format identifiers. Like Contents it
// accepts a JSON array or a string holding one, and degrades to empty.
type Formats []string

func (f *Formats) UnmarshalJSON(b []byte) error {
	s, err := decodeMaybeQuoted[[]string](b)
	if err != nil {
		slog.Warn("malformed available formats, using primary format", "err", err)
		*f = nil
		return nil
	}
	*f = s
	return nil
}

func decodeMaybeQuoted[T any](b []byte) (T, error) {
	var out T
	if string(b) == "null" {
		return out, nil
	}
	if len(b) > 0 && b[0] == '"' {
		var inner string
		if err := json.Unmarshal(b, &inner); err != nil {
			return out, err
		}
		if inner == "" {
			return out, nil
		}
		b = []byte(inner)
	}
	err := json.Unmarshal(b, &out)
	return out, err
}
