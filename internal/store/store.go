// Package store persists captured clipboard entries in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"go.klb.dev/clipone/internal/category"
	"go.klb.dev/clipone/internal/entry"
)

// ErrNotFound is returned when no entry has the requested id.
var ErrNotFound = errors.New("entry not found")

// Store is a SQLite-backed entry history.
type Store struct {
	db *sql.DB

	entropyMu sync.Mutex
	entropy   *rand.Rand
}

// DefaultPath returns the database path under the user's data directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "clipone", "history.db")
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) newID() string {
	s.entropyMu.Lock()
	defer s.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS clipboard_items (
		id             TEXT PRIMARY KEY,
		primary_format TEXT NOT NULL,
		content        TEXT NOT NULL,
		timestamp      INTEGER NOT NULL,
		is_favorite    INTEGER NOT NULL DEFAULT 0,
		source_app     TEXT,
		created_at     TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_items_timestamp ON clipboard_items(timestamp DESC);

	CREATE TABLE IF NOT EXISTS clipboard_contents (
		item_id   TEXT NOT NULL REFERENCES clipboard_items(id) ON DELETE CASCADE,
		seq       INTEGER NOT NULL,
		format    TEXT NOT NULL,
		content   TEXT NOT NULL,
		data_size INTEGER NOT NULL,
		PRIMARY KEY (item_id, format)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save stores e with one content row per available format and returns it
// with its id and timestamp filled in.
func (s *Store) Save(ctx context.Context, e entry.Entry) (entry.Entry, error) {
	if e.ID == "" {
		e.ID = s.newID()
	}
	if e.Timestamp == 0 {
		e.Timestamp = time.Now().UnixMilli()
	}
	if e.PrimaryFormat == "" {
		e.PrimaryFormat = category.FormatPlain
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return e, err
	}
	defer tx.Rollback()

	var source *string
	if e.SourceApp != "" {
		source = &e.SourceApp
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO clipboard_items (id, primary_format, content, timestamp, is_favorite, source_app, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.PrimaryFormat, e.Content, e.Timestamp, e.Favorite, source,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return e, fmt.Errorf("insert item: %w", err)
	}

	for i, f := range e.AvailableFormats() {
		c, ok := e.Contents[f]
		if !ok && f == e.PrimaryFormat {
			c = e.Content
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO clipboard_contents (item_id, seq, format, content, data_size)
			 VALUES (?, ?, ?, ?, ?)`,
			e.ID, i, f, c, len(c))
		if err != nil {
			return e, fmt.Errorf("insert content %s: %w", f, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return e, err
	}
	return e, nil
}

// FetchHistory returns up to limit entries, newest first. A limit of zero or
// less returns everything.
func (s *Store) FetchHistory(ctx context.Context, limit int) ([]entry.Entry, error) {
	return s.queryItems(ctx, "", limit)
}

// Search returns up to limit entries, newest first, whose default content
// or any per-format content contains query. Matching ignores ASCII case. A
// limit of zero or less returns every match.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]entry.Entry, error) {
	pattern := "%" + likeEscaper.Replace(query) + "%"
	return s.queryItems(ctx,
		`WHERE content LIKE ? ESCAPE '\' OR id IN (
			SELECT item_id FROM clipboard_contents WHERE content LIKE ? ESCAPE '\'
		 )`, limit, pattern, pattern)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// queryItems lists items matching where, newest first, with their contents.
func (s *Store) queryItems(ctx context.Context, where string, limit int, args ...any) ([]entry.Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, primary_format, content, timestamp, is_favorite, source_app
		 FROM clipboard_items `+where+` ORDER BY timestamp DESC, rowid DESC LIMIT ?`,
		append(args, limit)...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var list []entry.Entry
	for rows.Next() {
		e, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.loadContents(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// Get returns the entry with id.
func (s *Store) Get(ctx context.Context, id string) (entry.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, primary_format, content, timestamp, is_favorite, source_app
		 FROM clipboard_items WHERE id = ?`, id)
	e, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return entry.Entry{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return entry.Entry{}, err
	}
	list := []entry.Entry{e}
	if err := s.loadContents(ctx, list); err != nil {
		return entry.Entry{}, err
	}
	return list[0], nil
}

// RecentContains reports whether one of the n newest entries has content.
func (s *Store) RecentContains(ctx context.Context, content string, n int) (bool, error) {
	var found bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM (
				SELECT content FROM clipboard_items ORDER BY timestamp DESC, rowid DESC LIMIT ?
			) WHERE content = ?
		)`, n, content).Scan(&found)
	return found, err
}

// ToggleFavorite flips the favorite flag and returns the new value.
func (s *Store) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	var fav bool
	err := s.db.QueryRowContext(ctx,
		`UPDATE clipboard_items SET is_favorite = 1 - is_favorite WHERE id = ? RETURNING is_favorite`,
		id).Scan(&fav)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return fav, err
}

// Delete removes the entry with id and its contents.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM clipboard_items WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}

// Clear removes every entry, favorites included, and returns how many were
// removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM clipboard_items`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clipboard_items`).Scan(&n)
	return n, err
}

// Cleanup deletes the oldest non-favorite entries beyond keep and returns
// how many were removed.
func (s *Store) Cleanup(ctx context.Context, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM clipboard_items
		 WHERE is_favorite = 0 AND id NOT IN (
			SELECT id FROM clipboard_items ORDER BY timestamp DESC, rowid DESC LIMIT ?
		 )`, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(sc scanner) (entry.Entry, error) {
	var (
		e      entry.Entry
		source sql.NullString
	)
	if err := sc.Scan(&e.ID, &e.PrimaryFormat, &e.Content, &e.Timestamp, &e.Favorite, &source); err != nil {
		return e, err
	}
	e.SourceApp = source.String
	return e, nil
}

// loadContents fills Formats and Contents for every entry in list. An empty
// content row marks a format saved without content and stays out of
// Contents.
func (s *Store) loadContents(ctx context.Context, list []entry.Entry) error {
	if len(list) == 0 {
		return nil
	}
	idx := make(map[string]int, len(list))
	args := make([]any, len(list))
	for i, e := range list {
		idx[e.ID] = i
		args[i] = e.ID
	}

	q := `SELECT item_id, format, content FROM clipboard_contents
	      WHERE item_id IN (?` + strings.Repeat(",?", len(list)-1) + `)
	      ORDER BY item_id, seq`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("query contents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, format, content string
		if err := rows.Scan(&id, &format, &content); err != nil {
			return err
		}
		e := &list[idx[id]]
		e.Formats = append(e.Formats, format)
		if content != "" {
			if e.Contents == nil {
				e.Contents = make(entry.Contents)
			}
			e.Contents[format] = content
		}
	}
	return rows.Err()
}
