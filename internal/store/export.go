package store

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"go.klb.dev/clipone/internal/category"
	"go.klb.dev/clipone/internal/entry"
)

// ExportVersion is written into every export document.
const ExportVersion = "1.0"

// Export is the JSON document written by Export.
type Export struct {
	Version    string        `json:"version"`
	ExportedAt time.Time     `json:"exported_at"`
	TotalItems int           `json:"total_items"`
	Items      []entry.Entry `json:"items"`
}

// Export writes every stored entry, newest first, as an indented JSON
// document.
func (s *Store) Export(ctx context.Context, w io.Writer) error {
	items, err := s.FetchHistory(ctx, 0)
	if err != nil {
		return err
	}
	if items == nil {
		items = []entry.Entry{}
	}
	doc := Export{
		Version:    ExportVersion,
		ExportedAt: time.Now().UTC(),
		TotalItems: len(items),
		Items:      items,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}

// csvHeader is the first row written by ExportCSV.
var csvHeader = []string{"ID", "Content", "ContentType", "Timestamp", "IsFavorite", "SourceApp", "CreatedAt"}

// ExportCSV writes every stored entry, newest first, as CSV with one row per
// entry and its default content.
func (s *Store) ExportCSV(ctx context.Context, w io.Writer) error {
	items, err := s.FetchHistory(ctx, 0)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, e := range items {
		row := []string{
			e.ID,
			e.Content,
			e.PrimaryFormat,
			strconv.FormatInt(e.Timestamp, 10),
			strconv.FormatBool(e.Favorite),
			e.SourceApp,
			e.Time().UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// ErrNotExport is returned by Import for input that is not an export document.
var ErrNotExport = errors.New("not a clipone export document")

// Import reads a document written by Export and stores its entries under new
// ids. An entry whose content and timestamp match a stored entry is skipped.
// It returns how many entries were stored.
func (s *Store) Import(ctx context.Context, r io.Reader) (int, error) {
	var doc Export
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNotExport, err)
	}
	if doc.Version == "" {
		return 0, fmt.Errorf("%w: missing version", ErrNotExport)
	}

	imported := 0
	for _, e := range doc.Items {
		dup, err := s.contains(ctx, e.Content, e.Timestamp)
		if err != nil {
			return imported, err
		}
		if dup {
			continue
		}
		e.ID = ""
		if _, err := s.Save(ctx, e); err != nil {
			return imported, fmt.Errorf("import entry: %w", err)
		}
		imported++
	}
	return imported, nil
}

func (s *Store) contains(ctx context.Context, content string, timestamp int64) (bool, error) {
	var found bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM clipboard_items WHERE content = ? AND timestamp = ?)`,
		content, timestamp).Scan(&found)
	return found, err
}

// Stats summarises the stored history.
type Stats struct {
	TotalItems    int                       `json:"total_items"`
	FavoriteItems int                       `json:"favorite_items"`
	ByCategory    map[category.Category]int `json:"content_type_counts"`
}

// Stats counts entries overall, favorites, and per category.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	st := Stats{ByCategory: make(map[category.Category]int)}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(is_favorite), 0) FROM clipboard_items`).
		Scan(&st.TotalItems, &st.FavoriteItems)
	if err != nil {
		return st, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT primary_format, COUNT(*) FROM clipboard_items GROUP BY primary_format`)
	if err != nil {
		return st, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			format string
			n      int
		)
		if err := rows.Scan(&format, &n); err != nil {
			return st, err
		}
		st.ByCategory[category.Classify(format)] += n
	}
	return st, rows.Err()
}
