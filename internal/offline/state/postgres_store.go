package state

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
	"github.com/felixgeelhaar/logmyjob/internal/shared/infrastructure/database"
)

// PostgresStore keeps state in the kv_state table of a hosted database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a state store on a migrated PostgreSQL database.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.pool.QueryRow(ctx, `SELECT value FROM kv_state WHERE key = $1`, key).Scan(&v)
	if database.IsNoRows(err) {
		return "", nil
	}
	if err != nil {
		return "", domain.StorageError("get "+key, err)
	}
	return v, nil
}

// Set implements Store.
func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO kv_state (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key, value)
	if err != nil {
		return domain.StorageError("set "+key, err)
	}
	return nil
}

// Delete implements Store.
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM kv_state WHERE key = $1`, key); err != nil {
		return domain.StorageError("delete "+key, err)
	}
	return nil
}

// CompareAndSwap implements Store.
func (s *PostgresStore) CompareAndSwap(ctx context.Context, key, prev, next string) (bool, error) {
	var (
		tag pgconn.CommandTag
		err error
	)
	if prev == "" {
		tag, err = s.pool.Exec(ctx, `
			INSERT INTO kv_state (key, value, updated_at) VALUES ($1, $2, NOW())
			ON CONFLICT (key) DO NOTHING`, key, next)
	} else {
		tag, err = s.pool.Exec(ctx, `
			UPDATE kv_state SET value = $1, updated_at = NOW() WHERE key = $2 AND value = $3`,
			next, key, prev)
	}
	if err != nil {
		return false, domain.StorageError("compare-and-swap "+key, err)
	}
	return tag.RowsAffected() == 1, nil
}
