package state

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
)

// RedisStore keeps state as plain Redis strings. Keys are used verbatim;
// they already carry the logmyjob: namespace.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a state store on a Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", domain.StorageError("get "+key, err)
	}
	return v, nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return domain.StorageError("set "+key, err)
	}
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return domain.StorageError("delete "+key, err)
	}
	return nil
}

// CompareAndSwap implements Store with WATCH/MULTI/EXEC: the EXEC aborts
// when another client touched the key after it was read.
func (s *RedisStore) CompareAndSwap(ctx context.Context, key, prev, next string) (bool, error) {
	swapped := false
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != prev {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		if err != nil {
			return err
		}
		swapped = true
		return nil
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, domain.StorageError("compare-and-swap "+key, err)
	}
	return swapped, nil
}
