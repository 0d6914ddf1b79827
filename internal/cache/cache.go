// Package cache holds structured reports keyed by a digest of their source text.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/medscan/medscan-api/internal/model"
)

const (
	DefaultMaxEntries = 100
	DefaultTTL        = 24 * time.Hour
)

// Key returns the 128-bit hex digest of text. Identical text always yields the same key.
func Key(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Config controls capacity and expiry.
type Config struct {
	MaxEntries int
	TTL        time.Duration
}

// DefaultConfig returns the capacity and TTL used when none are configured.
func DefaultConfig() Config {
	return Config{
		MaxEntries: DefaultMaxEntries,
		TTL:        DefaultTTL,
	}
}

// Observer receives cache events. Every method may be called with the cache lock held.
type Observer interface {
	Hit()
	Miss()
	Expired()
	Evicted()
	Size(n int)
}

type entry struct {
	report    model.StructuredReport
	createdAt time.Time
}

// ReportCache is a bounded store of structured reports. Entries expire lazily on
// Get once their age reaches the TTL; when full, Set evicts the entry with the
// oldest creation time. It is safe for concurrent use.
type ReportCache struct {
	mu       sync.Mutex
	items    *gocache.Cache
	max      int
	ttl      time.Duration
	now      func() time.Time
	observer Observer
}

// Option customises a ReportCache.
type Option func(*ReportCache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *ReportCache) {
		c.now = now
	}
}

// WithObserver reports hits, misses, expiries and evictions to o.
func WithObserver(o Observer) Option {
	return func(c *ReportCache) {
		c.observer = o
	}
}

// New creates a ReportCache. Non-positive values in cfg fall back to the defaults.
func New(cfg Config, opts ...Option) *ReportCache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}

	c := &ReportCache{
		// Expiry is handled here, so go-cache runs without a janitor.
		items:    gocache.New(gocache.NoExpiration, 0),
		max:      cfg.MaxEntries,
		ttl:      cfg.TTL,
		now:      time.Now,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a copy of the report stored under key. An expired entry is
// removed and reported as absent.
func (c *ReportCache) Get(key string) (model.StructuredReport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, found := c.items.Get(key)
	if !found {
		c.observer.Miss()
		return model.StructuredReport{}, false
	}

	e := raw.(entry)
	if c.now().Sub(e.createdAt) >= c.ttl {
		c.items.Delete(key)
		c.observer.Expired()
		c.observer.Miss()
		c.observer.Size(c.items.ItemCount())
		return model.StructuredReport{}, false
	}

	c.observer.Hit()
	return e.report.Clone(), true
}

// Set stores a copy of report under key, evicting the oldest entry first when
// the cache is full. Replacing an existing key never evicts.
func (c *ReportCache) Set(key string, report model.StructuredReport) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items.Get(key); !exists && c.items.ItemCount() >= c.max {
		c.evictOldest()
	}

	c.items.Set(key, entry{report: report.Clone(), createdAt: c.now()}, gocache.NoExpiration)
	c.observer.Size(c.items.ItemCount())
}

// Len returns the number of stored entries, expired ones included.
func (c *ReportCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.ItemCount()
}

// evictOldest removes the entry with the smallest creation time; ties go to the
// smallest key. Callers hold c.mu.
func (c *ReportCache) evictOldest() {
	var (
		oldestKey string
		oldestAt  time.Time
		found     bool
	)

	for key, item := range c.items.Items() {
		createdAt := item.Object.(entry).createdAt
		if !found || createdAt.Before(oldestAt) || (createdAt.Equal(oldestAt) && key < oldestKey) {
			oldestKey, oldestAt, found = key, createdAt, true
		}
	}

	if found {
		c.items.Delete(oldestKey)
		c.observer.Evicted()
	}
}

type nopObserver struct{}

func (nopObserver) Hit()     {}
func (nopObserver) Miss()    {}
func (nopObserver) Expired() {}
func (nopObserver) Evicted() {}
func (nopObserver) Size(int) {}
