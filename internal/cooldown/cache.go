package cooldown

import (
	"sync"
	"time"

	"stock-alert-service/internal/clock"
)

type entry struct {
	insertedAt time.Time
	ttl        time.Duration
}

// Cache is a TTL-keyed suppression store. A key present in the cache means
// "already notified, stay quiet" until its TTL elapses. Expired entries are
// purged lazily on every lookup; there is no background sweep and no size cap
// beyond TTL expiry, since key cardinality is bounded by inventory size.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   clock.Clock
	entries map[string]entry
}

// New creates a Cache whose entries expire after ttl by default.
func New(ttl time.Duration, clk clock.Clock) *Cache {
	return &Cache{
		ttl:     ttl,
		clock:   clk,
		entries: make(map[string]entry),
	}
}

// ShouldSuppress purges expired entries, then reports whether key is still
// inside its suppression window. Purge and check happen under one lock so a
// concurrent check-then-mark on the same key cannot interleave.
func (c *Cache) ShouldSuppress(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purgeLocked(c.clock.Now())
	_, ok := c.entries[key]
	return ok
}

// MarkSent inserts or refreshes key with the cache's default TTL.
func (c *Cache) MarkSent(key string) {
	c.MarkSentFor(key, c.ttl)
}

// MarkSentFor inserts or refreshes key with an explicit TTL. Used for the
// out-of-stock urgency case where the same day key gets a shorter window.
func (c *Cache) MarkSentFor(key string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{insertedAt: c.clock.Now(), ttl: ttl}
}

// TTL returns the cache's default TTL.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Len returns the number of live entries, purging expired ones first.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purgeLocked(c.clock.Now())
	return len(c.entries)
}

func (c *Cache) purgeLocked(now time.Time) {
	for k, e := range c.entries {
		if now.Sub(e.insertedAt) > e.ttl {
			delete(c.entries, k)
		}
	}
}

// Set groups the four cache instances the pipeline uses. It is built once at
// process start and injected everywhere, so tests get isolated instances.
type Set struct {
	// Expired gates the daily expiration digest email (day-granular key).
	Expired *Cache
	// LowStock gates the low-stock digest email (day-granular key; urgent
	// batches are marked with the OutOfStock TTL).
	LowStock *Cache
	// OutOfStock supplies the urgent suppression window and gates the
	// telegram out-of-stock notice.
	OutOfStock *Cache
	// General holds per-product expiration suppression for the socket channel.
	General *Cache
}

// NewSet builds the four caches on a shared clock.
func NewSet(clk clock.Clock, expired, lowStock, outOfStock, general time.Duration) *Set {
	return &Set{
		Expired:    New(expired, clk),
		LowStock:   New(lowStock, clk),
		OutOfStock: New(outOfStock, clk),
		General:    New(general, clk),
	}
}

// DayKey derives a calendar-day suppression key such as "lowStock_2026-08-29".
// The caller passes a time already shifted to the configured timezone.
func DayKey(prefix string, t time.Time) string {
	return prefix + "_" + t.Format("2006-01-02")
}
