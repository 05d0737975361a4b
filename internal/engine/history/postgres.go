package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgSchema = `CREATE TABLE IF NOT EXISTS stream_lookups (
	id             BIGSERIAL PRIMARY KEY,
	key            TEXT NOT NULL,
	provider       TEXT NOT NULL,
	resource_id    TEXT NOT NULL,
	name           TEXT NOT NULL DEFAULT '',
	essential_ms   BIGINT NOT NULL DEFAULT 0,
	additional_ms  BIGINT NOT NULL DEFAULT 0,
	field_failures INTEGER NOT NULL DEFAULT 0,
	error          TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS stream_lookups_created_at ON stream_lookups (created_at DESC)`

// PostgresStore keeps the history in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// ConnectPostgres creates a pgx pool and makes sure the table exists.
func ConnectPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	config.MaxConns = 4
	config.MinConns = 1
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, "SET search_path TO public")
		return err
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create history table: %w", err)
	}

	slog.Info("history postgres connected", slog.String("addr", config.ConnConfig.Host))
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Record(ctx context.Context, e Entry) error {
	if err := validate(e); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO stream_lookups (key, provider, resource_id, name, essential_ms, additional_ms, field_failures, error, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, now()))`,
		e.Key, e.Provider, e.ResourceID, e.Name,
		e.Essential.Milliseconds(), e.Additional.Milliseconds(), e.FieldFailure, e.Error,
		nullTime(e),
	)
	if err != nil {
		return fmt.Errorf("history: insert: %w", err)
	}
	return nil
}

func nullTime(e Entry) any {
	if e.CreatedAt.IsZero() {
		return nil
	}
	return e.CreatedAt
}

func (s *PostgresStore) Recent(ctx context.Context, provider string, limit int) ([]Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, key, provider, resource_id, name, essential_ms, additional_ms, field_failures, error, created_at
		 FROM stream_lookups
		 WHERE $1 = '' OR provider = $1
		 ORDER BY created_at DESC, id DESC LIMIT $2`,
		provider, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var (
			e            Entry
			essMS, addMS int64
		)
		err := row.Scan(&e.ID, &e.Key, &e.Provider, &e.ResourceID, &e.Name,
			&essMS, &addMS, &e.FieldFailure, &e.Error, &e.CreatedAt)
		e.Essential = time.Duration(essMS) * time.Millisecond
		e.Additional = time.Duration(addMS) * time.Millisecond
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("history: scan: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
