package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
)

// RedisStore shares the queue between processes through Redis.
//
// Layout under the key prefix:
//
//	<prefix>:seq      INCR counter handing out ids
//	<prefix>:pending  sorted set, score = timestamp in µs, member = zero-padded id
//	<prefix>:records  hash, field = id, value = JSON record
//
// Members are zero-padded so that equal scores fall back to id order.
type RedisStore struct {
	client *redis.Client
	opts   options
}

// NewRedisStore creates a queue on a Redis client.
func NewRedisStore(client *redis.Client, opts ...Option) *RedisStore {
	return &RedisStore{client: client, opts: newOptions(opts)}
}

type redisRecord struct {
	ID      int64  `json:"id"`
	Micros  int64  `json:"ts"`
	Kind    string `json:"kind"`
	Method  string `json:"method"`
	URL     string `json:"url"`
	Body    []byte `json:"body,omitempty"`
	Headers string `json:"headers"`
	Sealed  bool   `json:"sealed"`
}

func (s *RedisStore) key(name string) string {
	return s.opts.prefix + ":" + name
}

func member(id int64) string {
	return fmt.Sprintf("%020d", id)
}

// Enqueue implements Store.
func (s *RedisStore) Enqueue(ctx context.Context, m *domain.QueuedMutation) (int64, error) {
	s.opts.stamp(m)
	headers, sealed, err := s.opts.encodeHeaders(m.Headers)
	if err != nil {
		return 0, domain.StorageError("enqueue", err)
	}

	id, err := s.client.Incr(ctx, s.key("seq")).Result()
	if err != nil {
		return 0, domain.StorageError("enqueue", err)
	}

	raw, err := json.Marshal(redisRecord{
		ID:      id,
		Micros:  m.Timestamp.UnixMicro(),
		Kind:    m.Kind,
		Method:  m.Method,
		URL:     m.URL,
		Body:    m.Body,
		Headers: headers,
		Sealed:  sealed,
	})
	if err != nil {
		return 0, domain.StorageError("enqueue", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.key("records"), strconv.FormatInt(id, 10), raw)
		pipe.ZAdd(ctx, s.key("pending"), redis.Z{
			Score:  float64(m.Timestamp.UnixMicro()),
			Member: member(id),
		})
		return nil
	})
	if err != nil {
		return 0, domain.StorageError("enqueue", err)
	}

	m.ID = id
	return id, nil
}

// ListPending implements Store.
func (s *RedisStore) ListPending(ctx context.Context) ([]*domain.QueuedMutation, error) {
	members, err := s.client.ZRange(ctx, s.key("pending"), 0, -1).Result()
	if err != nil {
		return nil, domain.StorageError("list pending", err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	fields := make([]string, len(members))
	for i, mem := range members {
		id, err := strconv.ParseInt(mem, 10, 64)
		if err != nil {
			return nil, domain.StorageError("list pending", fmt.Errorf("bad member %q: %w", mem, err))
		}
		fields[i] = strconv.FormatInt(id, 10)
	}

	values, err := s.client.HMGet(ctx, s.key("records"), fields...).Result()
	if err != nil {
		return nil, domain.StorageError("list pending", err)
	}

	out := make([]*domain.QueuedMutation, 0, len(values))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			// removed between ZRANGE and HMGET
			continue
		}
		var rec redisRecord
		if err := json.Unmarshal([]byte(str), &rec); err != nil {
			id, _ := strconv.ParseInt(fields[i], 10, 64)
			out = append(out, &domain.QueuedMutation{ID: id, DecodeErr: fmt.Errorf("decode record: %w", err)})
			continue
		}
		m := &domain.QueuedMutation{
			ID:        rec.ID,
			Timestamp: time.UnixMicro(rec.Micros).UTC(),
			Kind:      rec.Kind,
			Method:    rec.Method,
			URL:       rec.URL,
			Body:      rec.Body,
		}
		s.opts.decodeHeaders(m, rec.Headers, rec.Sealed)
		out = append(out, m)
	}
	return out, nil
}

// Remove implements Store.
func (s *RedisStore) Remove(ctx context.Context, id int64) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, s.key("pending"), member(id))
		pipe.HDel(ctx, s.key("records"), strconv.FormatInt(id, 10))
		return nil
	})
	if err != nil {
		return domain.StorageError("remove", err)
	}
	return nil
}

// Clear implements Store. The id sequence survives so ids stay monotonic.
func (s *RedisStore) Clear(ctx context.Context) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key("pending"), s.key("records"))
		return nil
	})
	if err != nil {
		return domain.StorageError("clear", err)
	}
	return nil
}

// Count implements Store.
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.ZCard(ctx, s.key("pending")).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, domain.StorageError("count", err)
	}
	return int(n), nil
}
