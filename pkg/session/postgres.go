package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	schemaSQL = `CREATE TABLE IF NOT EXISTS channel_selections (
	user_key   TEXT PRIMARY KEY,
	channel    TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	selectSQL = `SELECT channel FROM channel_selections WHERE user_key = $1`
	upsertSQL = `INSERT INTO channel_selections (user_key, channel, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (user_key) DO UPDATE SET channel = EXCLUDED.channel, updated_at = now()`
)

// querier is the subset of pgxpool.Pool the store needs.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps selections in the channel_selections table.
type PostgresStore struct {
	db   querier
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and makes sure the table exists.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresStore{db: pool, pool: pool}
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return store, nil
}

// NewPostgresStore wraps an existing connection or pool.
func NewPostgresStore(db querier) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the selections table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create channel_selections table: %w", err)
	}

	return nil
}

func (s *PostgresStore) Get(ctx context.Context, userID int64) (string, bool, error) {
	var channel string
	err := s.db.QueryRow(ctx, selectSQL, Key(userID)).Scan(&channel)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select channel selection: %w", err)
	}

	return channel, true, nil
}

func (s *PostgresStore) Put(ctx context.Context, userID int64, channel string) error {
	if _, err := s.db.Exec(ctx, upsertSQL, Key(userID), channel); err != nil {
		return fmt.Errorf("upsert channel selection: %w", err)
	}

	return nil
}

// Close releases the pool opened by OpenPostgres.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
