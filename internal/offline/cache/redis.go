package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage shares caches between processes. Layout per cache:
// <prefix>:<name>:entries (hash key -> JSON entry) and <prefix>:<name>:index
// (sorted set key -> stored-at millis). <prefix>:names is the set of caches.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

// NewRedisStorage creates a storage under prefix ("logmyjob:cache" when empty).
func NewRedisStorage(client *redis.Client, prefix string) *RedisStorage {
	if prefix == "" {
		prefix = "logmyjob:cache"
	}
	return &RedisStorage{client: client, prefix: prefix}
}

func (s *RedisStorage) entriesKey(name string) string { return s.prefix + ":" + name + ":entries" }
func (s *RedisStorage) indexKey(name string) string   { return s.prefix + ":" + name + ":index" }
func (s *RedisStorage) namesKey() string              { return s.prefix + ":names" }

func (s *RedisStorage) Get(ctx context.Context, name, key string) (*Entry, error) {
	raw, err := s.client.HGet(ctx, s.entriesKey(name), key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &e, nil
}

func (s *RedisStorage) Put(ctx context.Context, name string, e *Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s: %w", e.Key, err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.entriesKey(name), e.Key, raw)
		pipe.ZAdd(ctx, s.indexKey(name), redis.Z{Score: float64(e.StoredAt.UnixMilli()), Member: e.Key})
		pipe.SAdd(ctx, s.namesKey(), name)
		return nil
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", e.Key, err)
	}
	return nil
}

func (s *RedisStorage) Delete(ctx context.Context, name string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	members := make([]any, len(keys))
	for i, k := range keys {
		members[i] = k
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, s.entriesKey(name), keys...)
		pipe.ZRem(ctx, s.indexKey(name), members...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete from %s: %w", name, err)
	}
	return nil
}

func (s *RedisStorage) Stamps(ctx context.Context, name string) ([]Stamp, error) {
	zs, err := s.client.ZRangeWithScores(ctx, s.indexKey(name), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", name, err)
	}
	out := make([]Stamp, 0, len(zs))
	for _, z := range zs {
		key, _ := z.Member.(string)
		out = append(out, Stamp{Key: key, StoredAt: time.UnixMilli(int64(z.Score)).UTC()})
	}
	return out, nil
}

func (s *RedisStorage) Names(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, s.namesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list caches: %w", err)
	}
	return names, nil
}

func (s *RedisStorage) Drop(ctx context.Context, name string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.entriesKey(name), s.indexKey(name))
		pipe.SRem(ctx, s.namesKey(), name)
		return nil
	})
	if err != nil {
		return fmt.Errorf("drop %s: %w", name, err)
	}
	return nil
}
