package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCheckpointStore persists checkpoints in Redis so a suspended run
// can resume on a different worker process. A zero TTL keeps checkpoints
// forever; pending approvals have no expiry of their own.
type RedisCheckpointStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCheckpointStore(rdb *redis.Client, ttl time.Duration) *RedisCheckpointStore {
	return &RedisCheckpointStore{rdb: rdb, ttl: ttl}
}

var _ CheckpointStore = &RedisCheckpointStore{}

func checkpointKey(threadID string) string {
	return fmt.Sprintf("workflow:checkpoint:%s", threadID)
}

func (s *RedisCheckpointStore) Put(ctx context.Context, threadID string, state []byte) error {
	return s.rdb.Set(ctx, checkpointKey(threadID), state, s.ttl).Err()
}

func (s *RedisCheckpointStore) Get(ctx context.Context, threadID string) ([]byte, bool, error) {
	blob, err := s.rdb.Get(ctx, checkpointKey(threadID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return blob, true, nil
}

func (s *RedisCheckpointStore) Delete(ctx context.Context, threadID string) error {
	return s.rdb.Del(ctx, checkpointKey(threadID)).Err()
}
