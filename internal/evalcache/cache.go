// Package evalcache memoizes expression evaluations by content identity.
//
// Entries are keyed by the structural hash of the expression and the hash of
// the evaluation context, both computed from canonical JSON. Concurrent
// misses on one key share a single computation.
package evalcache

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/islproof/internal/eval"
)

// Observer is notified of every lookup. *metrics.Recorder implements it.
type Observer interface {
	CacheRequest(hit bool)
}

// Stats is a point-in-time view of cache activity.
type Stats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Entries int    `json:"entries"`
}

// Cache implements eval.Cache over a sync.Map. The zero value is not usable;
// call New.
type Cache struct {
	entries  sync.Map // eval.CacheKey -> eval.Result
	flight   singleflight.Group
	size     atomic.Int64
	hits     atomic.Uint64
	misses   atomic.Uint64
	observer Observer
}

var _ eval.Cache = (*Cache)(nil)

// Option configures a Cache.
type Option func(*Cache)

// WithObserver reports every lookup to o.
func WithObserver(o Observer) Option {
	return func(c *Cache) { c.observer = o }
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrCompute returns the stored result for key, or computes, stores and
// returns it. Callers missing on the same key wait for one compute.
func (c *Cache) GetOrCompute(key eval.CacheKey, compute func() eval.Result) eval.Result {
	if v, ok := c.entries.Load(key); ok {
		c.hits.Add(1)
		c.observe(true)
		return v.(eval.Result)
	}

	c.misses.Add(1)
	c.observe(false)
	v, _, _ := c.flight.Do(flightKey(key), func() (any, error) {
		if v, ok := c.entries.Load(key); ok {
			return v, nil
		}
		r := compute()
		if _, loaded := c.entries.LoadOrStore(key, r); !loaded {
			c.size.Add(1)
		}
		return r, nil
	})
	return v.(eval.Result)
}

func flightKey(key eval.CacheKey) string {
	return key.Expr + "\x00" + key.Context
}

// Get returns the stored result for key without computing.
func (c *Cache) Get(key eval.CacheKey) (eval.Result, bool) {
	v, ok := c.entries.Load(key)
	if !ok {
		return eval.Result{}, false
	}
	return v.(eval.Result), true
}

// Stats returns hit and miss counters and the number of stored entries.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: int(c.size.Load()),
	}
}

// Clear drops every entry. Counters are kept.
func (c *Cache) Clear() {
	c.entries.Range(func(k, _ any) bool {
		if _, ok := c.entries.LoadAndDelete(k); ok {
			c.size.Add(-1)
		}
		return true
	})
}

func (c *Cache) observe(hit bool) {
	if c.observer != nil {
		c.observer.CacheRequest(hit)
	}
}
