// Package store persists clipboard history entries in a local SQLite
// database. All mutations are serialized behind one mutex and one reused
// connection; durability is tuned for low-latency commits (WAL +
// synchronous=NORMAL) since history entries are reconstructible.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// Kind tags an entry as literal text or an image backing-file reference.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// Entry is one persisted clipboard item. For KindText, Content is the
// literal string; for KindImage it is the path of the backing PNG file.
type Entry struct {
	ID        int64     `json:"id"`
	Kind      Kind      `json:"kind"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrNotFound is returned by point lookups and point mutations when no
// entry has the requested id.
var ErrNotFound = errors.New("entry not found")

// timeLayout is fixed-width so that lexicographic order of stored
// timestamps matches chronological order. All timestamps are UTC.
const timeLayout = "2006-01-02 15:04:05.000000000"

// StorageError wraps any SQLite-level failure so callers can distinguish
// storage faults from domain errors.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return "store: " + e.Op + ": " + e.Err.Error() }
func (e *StorageError) Unwrap() error { return e.Err }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

const schema = `
CREATE TABLE IF NOT EXISTS clipboard (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	kind      TEXT NOT NULL,
	content   TEXT NOT NULL,
	timestamp DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_clipboard_timestamp ON clipboard (timestamp DESC);
`

// Store is the SQLite-backed clipboard history store. Safe for concurrent
// use: the monitor loop and the presentation layer share one instance.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrap("open", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, wrap("pragma", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, wrap("migrate", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Insert appends a new entry stamped with the current time and returns
// the full persisted record.
func (s *Store) Insert(kind Kind, content string) (Entry, error) {
	return s.insertAt(kind, content, time.Now().UTC())
}

func (s *Store) insertAt(kind Kind, content string, ts time.Time) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts = ts.UTC()

	res, err := s.db.Exec(
		`INSERT INTO clipboard (kind, content, timestamp) VALUES (?, ?, ?)`,
		string(kind), content, ts.Format(timeLayout),
	)
	if err != nil {
		return Entry{}, wrap("insert", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Entry{}, wrap("insert", err)
	}
	return Entry{ID: id, Kind: kind, Content: content, Timestamp: ts}, nil
}

// Get returns the entry with the given id, or ErrNotFound.
func (s *Store) Get(id int64) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(
		`SELECT id, kind, content, timestamp FROM clipboard WHERE id = ?`, id)
	e, err := scanEntry(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, wrap("get", err)
	}
	return e, nil
}

// ListAll returns every entry, most recent first.
func (s *Store) ListAll() ([]Entry, error) {
	return s.list(`SELECT id, kind, content, timestamp FROM clipboard
		ORDER BY timestamp DESC, id DESC`)
}

// ListPaged returns one page of entries in the same order as ListAll.
func (s *Store) ListPaged(limit, offset int) ([]Entry, error) {
	return s.list(`SELECT id, kind, content, timestamp FROM clipboard
		ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
}

func (s *Store) list(query string, args ...any) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, wrap("list", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, wrap("list", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list", err)
	}
	return out, nil
}

// Count returns the total number of entries.
func (s *Store) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM clipboard`).Scan(&n); err != nil {
		return 0, wrap("count", err)
	}
	return n, nil
}

// UpdateContent replaces the content of a text entry in place. The
// timestamp is deliberately not touched: an edit is not a re-copy.
func (s *Store) UpdateContent(id int64, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`UPDATE clipboard SET content = ? WHERE id = ?`, content, id)
	if err != nil {
		return wrap("update", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap("update", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByID removes a single entry. Deleting a missing id is ErrNotFound.
func (s *Store) DeleteByID(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM clipboard WHERE id = ?`, id)
	if err != nil {
		return wrap("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap("delete", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTextByContent removes every text entry whose content equals
// content exactly, returning how many were removed. This is the text
// half of merge-on-insert.
func (s *Store) DeleteTextByContent(content string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`DELETE FROM clipboard WHERE kind = ? AND content = ?`,
		string(KindText), content,
	)
	if err != nil {
		return 0, wrap("delete text by content", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrap("delete text by content", err)
	}
	return int(n), nil
}

// DeleteImagesByKey removes every image entry whose backing-file name
// embeds the fingerprint key ({unix}_{key}.png) and returns the file
// references so the caller can unlink them from disk.
func (s *Store) DeleteImagesByKey(key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pattern := "*_" + key + ".png"
	refs, err := s.contentsWhere(
		`kind = ? AND content GLOB ?`, string(KindImage), pattern)
	if err != nil {
		return nil, wrap("delete images by key", err)
	}
	if len(refs) == 0 {
		return nil, nil
	}
	_, err = s.db.Exec(
		`DELETE FROM clipboard WHERE kind = ? AND content GLOB ?`,
		string(KindImage), pattern,
	)
	if err != nil {
		return nil, wrap("delete images by key", err)
	}
	return refs, nil
}

// DeleteOlderThan removes every entry stamped strictly before cutoff.
// It returns the number of deleted entries and the backing-file
// references of deleted image entries so the caller can unlink them.
func (s *Store) DeleteOlderThan(cutoff time.Time) (int, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := cutoff.UTC().Format(timeLayout)
	refs, err := s.contentsWhere(`kind = ? AND timestamp < ?`, string(KindImage), ts)
	if err != nil {
		return 0, nil, wrap("delete older than", err)
	}
	res, err := s.db.Exec(`DELETE FROM clipboard WHERE timestamp < ?`, ts)
	if err != nil {
		return 0, nil, wrap("delete older than", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil, wrap("delete older than", err)
	}
	return int(n), refs, nil
}

// contentsWhere returns the content column of entries matching the
// condition. Must be called with s.mu held.
func (s *Store) contentsWhere(cond string, args ...any) ([]string, error) {
	rows, err := s.db.Query(`SELECT content FROM clipboard WHERE `+cond, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanEntry(scan func(...any) error) (Entry, error) {
	var (
		e    Entry
		kind string
		ts   string
	)
	if err := scan(&e.ID, &kind, &e.Content, &ts); err != nil {
		return Entry{}, err
	}
	e.Kind = Kind(kind)
	t, err := time.Parse(timeLayout, ts)
	if err != nil {
		return Entry{}, fmt.Errorf("bad timestamp %q: %w", ts, err)
	}
	e.Timestamp = t
	return e, nil
}
