package queue

import (
	"context"
	"database/sql"
	"time"

	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
)

// SQLiteStore is the local queue, the on-disk counterpart of the browser's
// IndexedDB store.
type SQLiteStore struct {
	db   *sql.DB
	opts options
}

// NewSQLiteStore creates a queue on a migrated SQLite database.
func NewSQLiteStore(db *sql.DB, opts ...Option) *SQLiteStore {
	return &SQLiteStore{db: db, opts: newOptions(opts)}
}

// Enqueue implements Store.
func (s *SQLiteStore) Enqueue(ctx context.Context, m *domain.QueuedMutation) (int64, error) {
	s.opts.stamp(m)
	headers, sealed, err := s.opts.encodeHeaders(m.Headers)
	if err != nil {
		return 0, domain.StorageError("enqueue", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO offline_queue (created_at, kind, method, url, body, headers, sealed)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.Timestamp.UnixMicro(), m.Kind, m.Method, m.URL, m.Body, headers, sealed,
	)
	if err != nil {
		return 0, domain.StorageError("enqueue", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, domain.StorageError("enqueue", err)
	}
	m.ID = id
	return id, nil
}

// ListPending implements Store.
func (s *SQLiteStore) ListPending(ctx context.Context) ([]*domain.QueuedMutation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, kind, method, url, body, headers, sealed
		FROM offline_queue
		ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, domain.StorageError("list pending", err)
	}
	defer rows.Close()

	var out []*domain.QueuedMutation
	for rows.Next() {
		var (
			m       domain.QueuedMutation
			micros  int64
			headers string
			sealed  bool
		)
		if err := rows.Scan(&m.ID, &micros, &m.Kind, &m.Method, &m.URL, &m.Body, &headers, &sealed); err != nil {
			return nil, domain.StorageError("list pending", err)
		}
		m.Timestamp = time.UnixMicro(micros).UTC()
		s.opts.decodeHeaders(&m, headers, sealed)
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError("list pending", err)
	}
	return out, nil
}

// Remove implements Store.
func (s *SQLiteStore) Remove(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM offline_queue WHERE id = ?`, id); err != nil {
		return domain.StorageError("remove", err)
	}
	return nil
}

// Clear implements Store.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM offline_queue`); err != nil {
		return domain.StorageError("clear", err)
	}
	return nil
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM offline_queue`).Scan(&n); err != nil {
		return 0, domain.StorageError("count", err)
	}
	return n, nil
}
