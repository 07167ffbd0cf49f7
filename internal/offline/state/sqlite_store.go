package state

import (
	"context"
	"database/sql"
	"time"

	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
	"github.com/felixgeelhaar/logmyjob/internal/shared/infrastructure/database"
)

// SQLiteStore keeps state in the kv_state table next to the queue.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a state store on a migrated SQLite database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_state WHERE key = ?`, key).Scan(&v)
	if database.IsNoRows(err) {
		return "", nil
	}
	if err != nil {
		return "", domain.StorageError("get "+key, err)
	}
	return v, nil
}

// Set implements Store.
func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	if err != nil {
		return domain.StorageError("set "+key, err)
	}
	return nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_state WHERE key = ?`, key); err != nil {
		return domain.StorageError("delete "+key, err)
	}
	return nil
}

// CompareAndSwap implements Store with a single conditional statement, so
// the check and the write are one atomic step.
func (s *SQLiteStore) CompareAndSwap(ctx context.Context, key, prev, next string) (bool, error) {
	var (
		res sql.Result
		err error
	)
	now := time.Now().UnixMilli()
	if prev == "" {
		res, err = s.db.ExecContext(ctx, `
			INSERT INTO kv_state (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO NOTHING`, key, next, now)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE kv_state SET value = ?, updated_at = ? WHERE key = ? AND value = ?`,
			next, now, key, prev)
	}
	if err != nil {
		return false, domain.StorageError("compare-and-swap "+key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, domain.StorageError("compare-and-swap "+key, err)
	}
	return n == 1, nil
}
