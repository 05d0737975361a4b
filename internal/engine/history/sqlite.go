package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// sqliteTime sorts lexically in time order.
const sqliteTime = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore keeps the history in a local sqlite file.
type SQLiteStore struct {
	db *sql.DB
}

// DefaultPath is ~/.go_stream/history.db.
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".go_stream", "history.db")
}

// OpenSQLite opens (or creates) the history database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("history: mkdir %s: %w", filepath.Dir(path), err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if err := initSQLiteSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func initSQLiteSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS lookups (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		key            TEXT NOT NULL,
		provider       TEXT NOT NULL,
		resource_id    TEXT NOT NULL,
		name           TEXT,
		essential_ms   INTEGER NOT NULL DEFAULT 0,
		additional_ms  INTEGER NOT NULL DEFAULT 0,
		field_failures INTEGER NOT NULL DEFAULT 0,
		error          TEXT,
		created_at     TEXT NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS lookups_created_at ON lookups (created_at)`)
	return err
}

func (s *SQLiteStore) Record(ctx context.Context, e Entry) error {
	if err := validate(e); err != nil {
		return err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lookups (key, provider, resource_id, name, essential_ms, additional_ms, field_failures, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Key, e.Provider, e.ResourceID, e.Name,
		e.Essential.Milliseconds(), e.Additional.Milliseconds(), e.FieldFailure,
		e.Error, e.CreatedAt.UTC().Format(sqliteTime),
	)
	if err != nil {
		return fmt.Errorf("history: insert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Recent(ctx context.Context, provider string, limit int) ([]Entry, error) {
	limit = clampLimit(limit)

	var (
		rows *sql.Rows
		err  error
	)
	const cols = `SELECT id, key, provider, resource_id, name, essential_ms, additional_ms, field_failures, error, created_at FROM lookups`
	if provider != "" {
		rows, err = s.db.QueryContext(ctx, cols+` WHERE provider = ? ORDER BY created_at DESC, id DESC LIMIT ?`, provider, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, cols+` ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e             Entry
			name, errText sql.NullString
			essMS, addMS  int64
			createdAt     string
		)
		if err := rows.Scan(&e.ID, &e.Key, &e.Provider, &e.ResourceID, &name,
			&essMS, &addMS, &e.FieldFailure, &errText, &createdAt); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		e.Name = name.String
		e.Error = errText.String
		e.Essential = time.Duration(essMS) * time.Millisecond
		e.Additional = time.Duration(addMS) * time.Millisecond
		e.CreatedAt, _ = time.Parse(sqliteTime, createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
