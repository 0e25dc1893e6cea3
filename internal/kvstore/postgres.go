package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// postgresSchema creates the kv_store table. Safe to run repeatedly.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS kv_store (
	key        TEXT PRIMARY KEY,
	value      BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore persists key-value pairs to a PostgreSQL database.
// It implements the Store interface.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore creates a PostgresStore backed by the given connection pool.
func NewPostgresStore(pool *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, logger: logger}
}

// Migrate creates the kv_store table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create kv_store: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx,
		"SELECT value FROM kv_store WHERE key = $1", key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

// Set implements Store.
func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO kv_store (key, value, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET
			value      = excluded.value,
			updated_at = now()`,
		key, value,
	); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}

	s.logger.Debug("kv value written",
		zap.String("key", key),
		zap.Int("bytes", len(value)),
	)
	return nil
}
