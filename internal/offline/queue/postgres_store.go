package queue

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
)

// PostgresStore keeps the queue in a hosted PostgreSQL database.
type PostgresStore struct {
	pool *pgxpool.Pool
	opts options
}

// NewPostgresStore creates a queue on a migrated PostgreSQL database.
func NewPostgresStore(pool *pgxpool.Pool, opts ...Option) *PostgresStore {
	return &PostgresStore{pool: pool, opts: newOptions(opts)}
}

// Enqueue implements Store.
func (s *PostgresStore) Enqueue(ctx context.Context, m *domain.QueuedMutation) (int64, error) {
	s.opts.stamp(m)
	headers, sealed, err := s.opts.encodeHeaders(m.Headers)
	if err != nil {
		return 0, domain.StorageError("enqueue", err)
	}

	err = s.pool.QueryRow(ctx, `
		INSERT INTO offline_queue (created_at, kind, method, url, body, headers, sealed)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		m.Timestamp, m.Kind, m.Method, m.URL, m.Body, headers, sealed,
	).Scan(&m.ID)
	if err != nil {
		return 0, domain.StorageError("enqueue", err)
	}
	return m.ID, nil
}

// ListPending implements Store.
func (s *PostgresStore) ListPending(ctx context.Context) ([]*domain.QueuedMutation, error) {
	rows, err := s.pool.Query(ctx, `
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
			ts      time.Time
			headers string
			sealed  bool
		)
		if err := rows.Scan(&m.ID, &ts, &m.Kind, &m.Method, &m.URL, &m.Body, &headers, &sealed); err != nil {
			return nil, domain.StorageError("list pending", err)
		}
		m.Timestamp = ts.UTC()
		s.opts.decodeHeaders(&m, headers, sealed)
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError("list pending", err)
	}
	return out, nil
}

// Remove implements Store.
func (s *PostgresStore) Remove(ctx context.Context, id int64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM offline_queue WHERE id = $1`, id); err != nil {
		return domain.StorageError("remove", err)
	}
	return nil
}

// Clear implements Store.
func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM offline_queue`); err != nil {
		return domain.StorageError("clear", err)
	}
	return nil
}

// Count implements Store.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM offline_queue`).Scan(&n); err != nil {
		return 0, domain.StorageError("count", err)
	}
	return n, nil
}
