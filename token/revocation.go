package token

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore is the single logical revocation authority. Entries live
// only as long as the token's own validity window would have lasted.
// Implementations must be safe under concurrent mutation from many
// request-handling goroutines.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

const (
	revocationShards = 16
	// revocationHardCap bounds the in-memory set. When reached the whole
	// set is flushed: a trade-off favoring simplicity over perfect memory
	// bounding, acceptable because flushed entries only re-admit tokens
	// that still pass signature and expiry checks.
	revocationHardCap = 10000
)

type revocationShard struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

// MemoryRevocationStore is a lock-striped in-process revocation set with
// per-entry expiry and lazy eviction. Suitable for single-instance
// deployments only; horizontally scaled deployments share a
// [RedisRevocationStore].
type MemoryRevocationStore struct {
	shards [revocationShards]*revocationShard
}

// NewMemoryRevocationStore creates an empty in-memory revocation set.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	s := &MemoryRevocationStore{}
	for i := range s.shards {
		s.shards[i] = &revocationShard{entries: make(map[string]time.Time)}
	}
	return s
}

func (s *MemoryRevocationStore) shard(jti string) *revocationShard {
	var h uint32 = 2166136261
	for i := 0; i < len(jti); i++ {
		h ^= uint32(jti[i])
		h *= 16777619
	}
	return s.shards[h%revocationShards]
}

// Revoke records the jti until its ttl elapses.
func (s *MemoryRevocationStore) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	if s.size() >= revocationHardCap {
		s.flush()
	}

	sh := s.shard(jti)
	sh.mu.Lock()
	sh.entries[jti] = time.Now().Add(ttl)
	sh.mu.Unlock()
	return nil
}

// IsRevoked reports jti membership, evicting the entry lazily once its
// window has passed.
func (s *MemoryRevocationStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}

	sh := s.shard(jti)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	expiry, ok := sh.entries[jti]
	if !ok {
		return false, nil
	}
	if time.Now().After(expiry) {
		delete(sh.entries, jti)
		return false, nil
	}
	return true, nil
}

func (s *MemoryRevocationStore) size() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		total += len(sh.entries)
		sh.mu.Unlock()
	}
	return total
}

func (s *MemoryRevocationStore) flush() {
	for _, sh := range s.shards {
		sh.mu.Lock()
		sh.entries = make(map[string]time.Time)
		sh.mu.Unlock()
	}
}

// RedisRevocationStore shares the revocation set across instances. Each
// entry carries its true TTL; redis handles eviction.
type RedisRevocationStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisRevocationStore creates a redis-backed revocation set under the
// given key prefix.
func NewRedisRevocationStore(client redis.UniversalClient, prefix string) *RedisRevocationStore {
	if prefix == "" {
		prefix = "karv"
	}
	return &RedisRevocationStore{redis: client, prefix: prefix}
}

func (s *RedisRevocationStore) key(jti string) string {
	return s.prefix + ":" + jti
}

// Revoke records the jti with its remaining validity window as TTL.
func (s *RedisRevocationStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	if err := s.redis.Set(ctx, s.key(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// IsRevoked reports jti membership.
func (s *RedisRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return n > 0, nil
}
