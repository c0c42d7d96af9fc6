package rate

import (
	"context"
	"sync"
	"time"
)

const memoryShards = 32

type rollingEntry struct {
	hits   []time.Time
	window time.Duration
}

type bucketEntry struct {
	windowStart time.Time
	ttl         time.Duration
	count       int64
}

type memoryShard struct {
	mu        sync.Mutex
	rolling   map[string]*rollingEntry
	buckets   map[string]*bucketEntry
	lastSweep time.Time
}

// MemoryStore is a lock-striped in-process [Store]. Stale windows are swept
// opportunistically on the request path; a shard untouched for the sweep
// interval keeps its garbage until the next request hits it, trading slight
// staleness for not running a timer.
type MemoryStore struct {
	shards        [memoryShards]*memoryShard
	sweepInterval time.Duration
}

// NewMemoryStore creates an in-process store sweeping stale windows at the
// given cadence.
func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	if sweepInterval <= 0 {
		sweepInterval = 5 * time.Minute
	}
	s := &MemoryStore{sweepInterval: sweepInterval}
	now := time.Now()
	for i := range s.shards {
		s.shards[i] = &memoryShard{
			rolling:   make(map[string]*rollingEntry),
			buckets:   make(map[string]*bucketEntry),
			lastSweep: now,
		}
	}
	return s
}

func (s *MemoryStore) shard(key string) *memoryShard {
	var h uint32 = 2166136261
	for i := 0; i < len(key); i++ {
		h ^= uint32(key[i])
		h *= 16777619
	}
	return s.shards[h%memoryShards]
}

// AllowRolling implements [Store].
func (s *MemoryStore) AllowRolling(_ context.Context, key string, max int, window time.Duration) (bool, error) {
	now := time.Now()
	sh := s.shard(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.maybeSweep(now, s.sweepInterval)

	entry := sh.rolling[key]
	if entry == nil {
		entry = &rollingEntry{}
		sh.rolling[key] = entry
	}
	entry.window = window

	cutoff := now.Add(-window)
	kept := entry.hits[:0]
	for _, hit := range entry.hits {
		if hit.After(cutoff) {
			kept = append(kept, hit)
		}
	}
	entry.hits = kept

	if len(entry.hits) >= max {
		return false, nil
	}
	entry.hits = append(entry.hits, now)
	return true, nil
}

// IncrBucket implements [Store].
func (s *MemoryStore) IncrBucket(_ context.Context, key string, ttl time.Duration) (int64, error) {
	now := time.Now()
	sh := s.shard(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.maybeSweep(now, s.sweepInterval)

	entry := sh.buckets[key]
	if entry == nil || now.Sub(entry.windowStart) >= entry.ttl {
		entry = &bucketEntry{windowStart: now, ttl: ttl}
		sh.buckets[key] = entry
	}
	entry.count++
	return entry.count, nil
}

// maybeSweep drops stale windows. Caller holds the shard lock.
func (sh *memoryShard) maybeSweep(now time.Time, interval time.Duration) {
	if now.Sub(sh.lastSweep) < interval {
		return
	}
	sh.lastSweep = now

	// A rolling entry is garbage only once its newest hit has aged past
	// the entry's own window; sweeping on the interval alone would forget
	// hits that still count against the budget.
	for key, entry := range sh.rolling {
		if len(entry.hits) == 0 || now.Sub(entry.hits[len(entry.hits)-1]) > entry.window {
			delete(sh.rolling, key)
		}
	}
	for key, entry := range sh.buckets {
		if now.Sub(entry.windowStart) >= entry.ttl {
			delete(sh.buckets, key)
		}
	}
}
