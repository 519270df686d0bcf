package hub

import (
	"context"
	"log/slog"

	"go.klb.dev/clipone/internal/category"
	"go.klb.dev/clipone/internal/entry"
)

// LogEntry logs a captured entry at INFO (source, primary format, formats)
// and at DEBUG a content preview of up to 120 runes, or the size for images.
func LogEntry(event string, e entry.Entry) {
	slog.Info(event,
		"entry", e.ID,
		"source", e.SourceApp,
		"format", e.PrimaryFormat,
		"formats", e.AvailableFormats(),
	)

	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	if e.Category() == category.Image {
		slog.Debug("entry content", "entry", e.ID, "size_bytes", len(e.Content))
		return
	}
	slog.Debug("entry content", "entry", e.ID, "preview", e.Preview(120))
}
