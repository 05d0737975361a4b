// Package history records finished lookups: which resource was loaded, how long
// each phase took and how many fields degraded on the way.
package history

import (
	"context"
	"errors"
	"time"
)

// Entry is one completed lookup. Durations are stored as milliseconds.
type Entry struct {
	ID           int64
	Key          string
	Provider     string
	ResourceID   string
	Name         string
	Essential    time.Duration
	Additional   time.Duration
	FieldFailure int
	Error        string
	CreatedAt    time.Time
}

// Store persists entries. Implementations are safe for concurrent use.
type Store interface {
	Record(ctx context.Context, e Entry) error
	// Recent returns up to limit entries, newest first. An empty provider
	// matches every provider.
	Recent(ctx context.Context, provider string, limit int) ([]Entry, error)
	Close() error
}

const (
	defaultLimit = 20
	maxLimit     = 100
)

func clampLimit(limit int) int {
	if limit <= 0 || limit > maxLimit {
		return defaultLimit
	}
	return limit
}

func validate(e Entry) error {
	if e.Key == "" || e.Provider == "" || e.ResourceID == "" {
		return errors.New("history: key, provider and resource id are required")
	}
	return nil
}

// Open picks PostgreSQL when databaseURL is set and the sqlite file at path
// otherwise.
func Open(ctx context.Context, databaseURL, path string) (Store, error) {
	if databaseURL != "" {
		return ConnectPostgres(ctx, databaseURL)
	}
	return OpenSQLite(path)
}
