package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Snapshot loads and saves a whole value at once.
type Snapshot[T any] interface {
	Load(ctx context.Context) (T, error)
	Save(ctx context.Context, v T) error
}

// MemorySnapshot keeps the value in process only.
type MemorySnapshot[T any] struct {
	mu sync.Mutex
	v  T
}

func (s *MemorySnapshot[T]) Load(context.Context) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v, nil
}

func (s *MemorySnapshot[T]) Save(_ context.Context, v T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v = v
	return nil
}

// redisKV is the subset of *redis.Client used for snapshots.
type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisSnapshot stores the value as one JSON document under key.
type RedisSnapshot[T any] struct {
	rdb redisKV
	key string
}

func NewRedisSnapshot[T any](rdb redisKV, key string) *RedisSnapshot[T] {
	return &RedisSnapshot[T]{rdb: rdb, key: key}
}

// Load returns the zero value when nothing has been saved yet.
func (s *RedisSnapshot[T]) Load(ctx context.Context) (T, error) {
	var v T
	raw, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return v, nil
	}
	if err != nil {
		return v, fmt.Errorf("load snapshot %s: %w", s.key, err)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decode snapshot %s: %w", s.key, err)
	}
	return v, nil
}

func (s *RedisSnapshot[T]) Save(ctx context.Context, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", s.key, err)
	}
	if err := s.rdb.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("save snapshot %s: %w", s.key, err)
	}
	return nil
}
