package rate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares rate-limit windows across instances. Rolling windows are
// sorted sets scored by unix nanos; fixed windows are plain counters with a
// TTL armed on the first hit.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore creates a redis-backed store under the given key prefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "karl"
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) key(key string) string {
	return s.prefix + ":" + key
}

// AllowRolling implements [Store]. Prune-then-count runs pipelined; the
// recording ZADD happens only when the request is admitted, so denied bursts
// never extend the window.
func (s *RedisStore) AllowRolling(ctx context.Context, key string, max int, window time.Duration) (bool, error) {
	now := time.Now()
	k := s.key(key)
	cutoff := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	pipe := s.redis.Pipeline()
	pipe.ZRemRangeByScore(ctx, k, "0", cutoff)
	card := pipe.ZCard(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if card.Val() >= int64(max) {
		return false, nil
	}

	member := strconv.FormatInt(now.UnixNano(), 10)
	pipe = s.redis.Pipeline()
	pipe.ZAdd(ctx, k, redis.Z{Score: float64(now.UnixNano()), Member: member})
	pipe.Expire(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return true, nil
}

// IncrBucket implements [Store].
func (s *RedisStore) IncrBucket(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	k := s.key(key)
	count, err := s.redis.Incr(ctx, k).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	// Fixed-window semantics: the TTL is armed only by the first hit.
	if count == 1 {
		if err := s.redis.Expire(ctx, k, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}
	return count, nil
}
