package openmeteo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/gridwatch/landslide-alert-engine/internal/domain"
	"github.com/gridwatch/landslide-alert-engine/internal/observability"
)

// SampleSource matches engine.SampleSource; declared locally so the cache
// can wrap any precipitation source without importing the engine.
type SampleSource interface {
	FetchSamples(ctx context.Context, tower domain.Tower, window time.Duration) ([]domain.PrecipitationSample, error)
}

// CachedSource wraps a SampleSource with an in-memory LRU cache keyed by
// coordinate and window. Entries expire after the TTL so consecutive cycles
// within the hour reuse one upstream call per tower, matching the API's
// hourly update cadence.
type CachedSource struct {
	inner   SampleSource
	cache   *lruCache
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *observability.Metrics
}

// NewCachedSource creates a cache decorator around a precipitation source.
func NewCachedSource(inner SampleSource, maxEntries int, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedSource {
	return &CachedSource{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		ttl:     ttl,
		clock:   clock,
		metrics: metrics,
	}
}

func (c *CachedSource) FetchSamples(ctx context.Context, tower domain.Tower, window time.Duration) ([]domain.PrecipitationSample, error) {
	// Four decimals (~11 m) so jittered registry coordinates still share an
	// entry.
	key := fmt.Sprintf("%.4f,%.4f|%s", tower.Latitude, tower.Longitude, window)

	if cached, at, ok := c.cache.get(key); ok {
		if c.clock.Since(at) < c.ttl {
			c.metrics.SampleCache.WithLabelValues("hit").Inc()
			return cached, nil
		}
		c.metrics.SampleCache.WithLabelValues("expired").Inc()
	} else {
		c.metrics.SampleCache.WithLabelValues("miss").Inc()
	}

	samples, err := c.inner.FetchSamples(ctx, tower, window)
	if err != nil {
		return nil, err
	}
	// Only cache non-empty series so a transient empty response is retried.
	if len(samples) > 0 {
		c.cache.put(key, samples, c.clock.Now())
	}
	return samples, nil
}

// lruCache is a thread-safe LRU cache of precipitation series.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key       string
	samples   []domain.PrecipitationSample
	fetchedAt time.Time
	prev      *entry
	next      *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) ([]domain.PrecipitationSample, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, time.Time{}, false
	}
	c.moveToFront(e)
	return e.samples, e.fetchedAt, true
}

func (c *lruCache) put(key string, samples []domain.PrecipitationSample, fetchedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.samples = samples
		e.fetchedAt = fetchedAt
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, samples: samples, fetchedAt: fetchedAt}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
