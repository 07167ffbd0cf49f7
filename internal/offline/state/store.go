// Package state is the key-value store that sits next to the durable queue
// and holds the scheduler's and replay engine's persistent markers.
package state

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
	"github.com/felixgeelhaar/logmyjob/internal/offline/storage"
	"github.com/felixgeelhaar/logmyjob/internal/shared/infrastructure/database"
)

// Persisted keys.
const (
	KeyNotificationSettings = "logmyjob:notification-settings"
	KeyVacations            = "logmyjob:vacations"
	KeyLastNotificationDate = "logmyjob:last-notification-date"
	KeyHeldMutations        = "logmyjob:held-mutations"
)

// Store is a string key-value store. An absent key reads as "".
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error

	// CompareAndSwap stores next only when the current value equals prev
	// ("" meaning absent). It reports whether the swap happened.
	CompareAndSwap(ctx context.Context, key, prev, next string) (bool, error)
}

// New builds the state store for an open backend.
func New(b *storage.Backend) (Store, error) {
	switch b.Driver {
	case database.DriverSQLite:
		return NewSQLiteStore(b.SQL), nil
	case database.DriverPostgres:
		return NewPostgresStore(b.Pool), nil
	case database.DriverRedis:
		return NewRedisStore(b.Redis), nil
	default:
		return nil, fmt.Errorf("unsupported state driver: %s", b.Driver)
	}
}

// GetJSON decodes the value at key into out. It reports false, leaving out
// untouched, when the key is absent.
func GetJSON(ctx context.Context, s Store, key string, out any) (bool, error) {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes value and stores it at key.
func SetJSON(ctx context.Context, s Store, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(raw))
}

// UpdateJSON applies fn to the decoded value at key and writes the result
// back with CompareAndSwap, retrying when a concurrent writer got there first.
func UpdateJSON[T any](ctx context.Context, s Store, key string, fn func(current T, found bool) (T, error)) (T, error) {
	const maxAttempts = 10
	var zero T
	for range maxAttempts {
		prev, err := s.Get(ctx, key)
		if err != nil {
			return zero, err
		}
		var current T
		found := prev != ""
		if found {
			if err := json.Unmarshal([]byte(prev), &current); err != nil {
				return zero, fmt.Errorf("decode %s: %w", key, err)
			}
		}
		next, err := fn(current, found)
		if err != nil {
			return zero, err
		}
		raw, err := json.Marshal(next)
		if err != nil {
			return zero, fmt.Errorf("encode %s: %w", key, err)
		}
		ok, err := s.CompareAndSwap(ctx, key, prev, string(raw))
		if err != nil {
			return zero, err
		}
		if ok {
			return next, nil
		}
	}
	return zero, domain.StorageError("update "+key, fmt.Errorf("too much contention"))
}
