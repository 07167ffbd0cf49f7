// Package queue is the durable FIFO of mutations captured while offline.
//
// Producers (the interceptor, the relay consumer) only append; the replay
// engine is the only component that removes. Each backend's own transaction
// semantics are the sole concurrency guard.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
	"github.com/felixgeelhaar/logmyjob/internal/offline/storage"
	"github.com/felixgeelhaar/logmyjob/internal/shared/infrastructure/crypto"
	"github.com/felixgeelhaar/logmyjob/internal/shared/infrastructure/database"
)

// Store is the durable queue.
type Store interface {
	// Enqueue persists m, assigning its ID and, when zero, its Timestamp.
	Enqueue(ctx context.Context, m *domain.QueuedMutation) (int64, error)

	// ListPending returns every record ordered by Timestamp, then ID.
	ListPending(ctx context.Context) ([]*domain.QueuedMutation, error)

	// Remove deletes a record. Removing an absent id is not an error.
	Remove(ctx context.Context, id int64) error

	// Clear removes every record.
	Clear(ctx context.Context) error

	// Count returns the number of pending records.
	Count(ctx context.Context) (int, error)
}

// sealedHeadersAAD binds sealed header blobs to this table.
var sealedHeadersAAD = []byte("logmyjob.offline_queue.headers")

type options struct {
	sealer crypto.Sealer
	now    func() time.Time
	prefix string
}

// Option configures a store.
type Option func(*options)

// WithHeaderSealer encrypts captured headers at rest.
func WithHeaderSealer(s crypto.Sealer) Option {
	return func(o *options) { o.sealer = s }
}

// WithClock overrides the time source used to stamp new records.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithKeyPrefix sets the Redis key prefix. Ignored by SQL backends.
func WithKeyPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

func newOptions(opts []Option) options {
	o := options{now: time.Now, prefix: "logmyjob:queue"}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// stamp fills Timestamp when the producer left it zero. Microsecond precision
// is what every backend can store without reordering.
func (o options) stamp(m *domain.QueuedMutation) {
	if m.Timestamp.IsZero() {
		m.Timestamp = o.now()
	}
	m.Timestamp = m.Timestamp.UTC().Truncate(time.Microsecond)
	if m.Kind == "" {
		m.Kind = domain.KindRequest
	}
}

// encodeHeaders renders headers as JSON, sealed when a sealer is configured.
func (o options) encodeHeaders(h map[string]string) (string, bool, error) {
	if h == nil {
		h = map[string]string{}
	}
	raw, err := json.Marshal(h)
	if err != nil {
		return "", false, err
	}
	if o.sealer == nil {
		return string(raw), false, nil
	}
	sealed, err := o.sealer.Seal(raw, sealedHeadersAAD)
	if err != nil {
		return "", false, fmt.Errorf("seal headers: %w", err)
	}
	return sealed, true, nil
}

// decodeHeaders reverses encodeHeaders. Failures are recorded on the
// mutation instead of failing the listing.
func (o options) decodeHeaders(m *domain.QueuedMutation, stored string, sealed bool) {
	raw := []byte(stored)
	if sealed {
		if o.sealer == nil {
			m.DecodeErr = fmt.Errorf("headers are sealed and no encryption key is configured")
			return
		}
		opened, err := o.sealer.Open(stored, sealedHeadersAAD)
		if err != nil {
			m.DecodeErr = fmt.Errorf("open sealed headers: %w", err)
			return
		}
		raw = opened
	}
	headers := map[string]string{}
	if err := json.Unmarshal(raw, &headers); err != nil {
		m.DecodeErr = fmt.Errorf("decode headers: %w", err)
		return
	}
	m.Headers = headers
}

// New builds the store for an open backend.
func New(b *storage.Backend, opts ...Option) (Store, error) {
	switch b.Driver {
	case database.DriverSQLite:
		return NewSQLiteStore(b.SQL, opts...), nil
	case database.DriverPostgres:
		return NewPostgresStore(b.Pool, opts...), nil
	case database.DriverRedis:
		return NewRedisStore(b.Redis, opts...), nil
	default:
		return nil, fmt.Errorf("unsupported queue driver: %s", b.Driver)
	}
}
