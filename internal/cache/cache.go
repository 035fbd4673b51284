package cache

import (
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// ResultCache is a TTL cache bounded by entry count. When a Put pushes the
// size above maxEntries the evictBatch oldest entries (by insertion time) are
// dropped. All reads and writes, including the eviction sweep, hold one mutex.
type ResultCache[V any] struct {
	mu         sync.Mutex
	entries    map[string]entry[V]
	ttl        time.Duration
	maxEntries int
	evictBatch int
	now        func() time.Time
	log        zerolog.Logger
}

type Option func(*options)

type options struct {
	now func() time.Time
	log zerolog.Logger
}

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

func New[V any](ttl time.Duration, maxEntries, evictBatch int, opts ...Option) *ResultCache[V] {
	o := options{now: time.Now, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if evictBatch <= 0 {
		evictBatch = 1
	}
	return &ResultCache[V]{
		entries:    make(map[string]entry[V]),
		ttl:        ttl,
		maxEntries: maxEntries,
		evictBatch: evictBatch,
		now:        o.now,
		log:        o.log.With().Str("component", "result_cache").Logger(),
	}
}

// Get returns the value stored under key if it is younger than the TTL.
// An expired entry is removed and reported absent.
func (c *ResultCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, key)
		c.log.Debug().Str("key", key).Msg("cache entry expired")
		return zero, false
	}
	return e.value, true
}

// Put stores value under key with the current time.
func (c *ResultCache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[V]{value: value, storedAt: c.now()}
	if c.maxEntries > 0 && len(c.entries) > c.maxEntries {
		c.evictOldestLocked(key)
	}
}

func (c *ResultCache[V]) evictOldestLocked(keep string) {
	type aged struct {
		key      string
		storedAt time.Time
	}
	candidates := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		if k == keep {
			continue
		}
		candidates = append(candidates, aged{key: k, storedAt: e.storedAt})
	}
	slices.SortFunc(candidates, func(a, b aged) int {
		return a.storedAt.Compare(b.storedAt)
	})

	n := min(c.evictBatch, len(candidates))
	for _, victim := range candidates[:n] {
		delete(c.entries, victim.key)
	}
	c.log.Debug().Int("evicted", n).Int("remaining", len(c.entries)).Msg("cache eviction sweep")
}

func (c *ResultCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *ResultCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ResultCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
}

// Stats reports the current size and configured bounds.
func (c *ResultCache[V]) Stats() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return map[string]any{
		"size":        len(c.entries),
		"ttl":         c.ttl.String(),
		"max_entries": c.maxEntries,
		"evict_batch": c.evictBatch,
	}
}
