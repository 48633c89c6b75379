// Package pricecache holds the process-wide SOL/USD quote.
package pricecache

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultTTL is how long a fetched price stays fresh.
const DefaultTTL = 30 * time.Second

// Cache returns the current quote price and whether it is fresh.
type Cache interface {
	Get(ctx context.Context) (float64, bool)
}

// Fetcher loads a price from upstream.
type Fetcher func(ctx context.Context) (float64, error)

// TTLCache refreshes through a Fetcher when the stored value is older than ttl.
// Concurrent refreshes may race; the last write wins.
type TTLCache struct {
	fetch Fetcher
	ttl   time.Duration
	now   func() time.Time
	log   logrus.FieldLogger

	mu        sync.RWMutex
	value     float64
	fetchedAt time.Time
	hasValue  bool
}

var _ Cache = (*TTLCache)(nil)

// Option configures a TTLCache.
type Option func(*TTLCache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *TTLCache) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *TTLCache) { c.log = log }
}

// New creates a cache. ttl <= 0 uses DefaultTTL.
func New(fetch Fetcher, ttl time.Duration, opts ...Option) *TTLCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &TTLCache{
		fetch: fetch,
		ttl:   ttl,
		now:   time.Now,
		log:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached price if fresh, otherwise refetches.
// When the fetch fails a stale value is returned with fresh=false;
// with no value at all it returns (0, false).
func (c *TTLCache) Get(ctx context.Context) (float64, bool) {
	c.mu.RLock()
	value, at, ok := c.value, c.fetchedAt, c.hasValue
	c.mu.RUnlock()

	if ok && c.now().Sub(at) < c.ttl {
		return value, true
	}

	price, err := c.fetch(ctx)
	if err != nil || price <= 0 {
		c.log.WithError(err).WithField("price", price).Warn("quote price refresh failed")
		return value, false
	}

	c.Set(price)
	return price, true
}

// Set stores price as fetched now.
func (c *TTLCache) Set(price float64) {
	c.mu.Lock()
	c.value = price
	c.fetchedAt = c.now()
	c.hasValue = true
	c.mu.Unlock()
}

// Static is a fixed-price Cache for tests and offline runs.
type Static float64

// Get returns the fixed price; zero is reported as not fresh.
func (s Static) Get(context.Context) (float64, bool) {
	return float64(s), s > 0
}
