package cache

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/use-agent/fraudlens/metrics"
	"github.com/use-agent/fraudlens/models"
)

// Options configures a Cache.
type Options struct {
	Enabled       bool
	TTL           time.Duration
	MaxItems      int
	SweepInterval time.Duration
}

// Cache is an in-memory store of scan results keyed by normalized URL.
// Expired entries are removed by go-cache's janitor every SweepInterval.
// It is safe for concurrent use.
type Cache struct {
	// mu serializes insert+evict so the item count never drifts past
	// maxItems under concurrent Puts.
	mu       sync.Mutex
	store    *gocache.Cache
	ttl      time.Duration
	maxItems int
}

// New creates a Cache. A disabled cache holds nothing and starts no janitor.
func New(opts Options) *Cache {
	if !opts.Enabled {
		return &Cache{}
	}
	return &Cache{
		store:    gocache.New(opts.TTL, opts.SweepInterval),
		ttl:      opts.TTL,
		maxItems: opts.MaxItems,
	}
}

// Key returns the cache key for a normalized URL.
func Key(url string) string {
	return "scan:" + url
}

// Enabled reports whether the cache stores anything.
func (c *Cache) Enabled() bool {
	return c.store != nil
}

// Get returns a copy of the cached result for url if present and unexpired.
func (c *Cache) Get(url string) (*models.ScanResult, bool) {
	if c.store == nil {
		return nil, false
	}
	v, ok := c.store.Get(Key(url))
	if !ok {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return v.(*models.ScanResult).Clone(), true
}

// Put stores a copy of res for url with the configured TTL.
func (c *Cache) Put(url string, res *models.ScanResult) {
	c.set(Key(url), res, c.ttl)
}

func (c *Cache) set(key string, res *models.ScanResult, ttl time.Duration) {
	if c.store == nil || res == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.Set(key, res.Clone(), ttl)
	if c.maxItems <= 0 || c.store.ItemCount() <= c.maxItems {
		return
	}
	// ItemCount includes unswept expired entries that Items hides.
	c.store.DeleteExpired()
	if c.store.ItemCount() > c.maxItems {
		c.evictEarliest()
	}
}

// evictEarliest deletes the single entry with the smallest expiration.
// Callers must hold c.mu.
func (c *Cache) evictEarliest() {
	var (
		victim   string
		earliest int64
		found    bool
	)
	for k, item := range c.store.Items() {
		if !found || item.Expiration < earliest {
			victim, earliest, found = k, item.Expiration, true
		}
	}
	if found {
		c.store.Delete(victim)
		metrics.CacheEvictions.Inc()
	}
}

// Len returns the number of stored entries, including expired ones the
// janitor has not swept yet.
func (c *Cache) Len() int {
	if c.store == nil {
		return 0
	}
	return c.store.ItemCount()
}
