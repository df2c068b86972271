package api

import (
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"time"
)

// PlanCacheConfig configures the explain cache.
type PlanCacheConfig struct {
	Enabled bool
	TTL     time.Duration
	MaxSize int
}

// DefaultPlanCacheConfig caches up to 1000 rendered plans for 5 minutes.
var DefaultPlanCacheConfig = PlanCacheConfig{
	Enabled: true,
	TTL:     5 * time.Minute,
	MaxSize: 1000,
}

// PlanCache caches rendered plans keyed by SQL text, catalog and session
// properties. A nil cache is valid and caches nothing.
type PlanCache struct {
	mu      sync.Mutex
	store   map[string]*planCacheEntry
	ttl     time.Duration
	maxSize int
	hits    int64
	misses  int64
}

type planCacheEntry struct {
	text      string
	createdAt time.Time
	expiresAt time.Time
}

func NewPlanCache(config PlanCacheConfig) *PlanCache {
	if !config.Enabled {
		return nil
	}
	return &PlanCache{
		store:   make(map[string]*planCacheEntry),
		ttl:     config.TTL,
		maxSize: config.MaxSize,
	}
}

// Get returns the cached plan text for key. Expired entries are evicted
// on the way out.
func (c *PlanCache) Get(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.store[key]
	if !exists {
		c.misses++
		return "", false
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.store, key)
		c.misses++
		return "", false
	}
	c.hits++
	return entry.text, true
}

// Set stores one rendered plan, evicting the oldest entry at capacity.
func (c *PlanCache) Set(key, text string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxSize > 0 && len(c.store) >= c.maxSize {
		if _, exists := c.store[key]; !exists {
			c.evictOldest()
		}
	}
	now := time.Now()
	c.store[key] = &planCacheEntry{
		text:      text,
		createdAt: now,
		expiresAt: now.Add(c.ttl),
	}
}

// Clear drops every entry.
func (c *PlanCache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = make(map[string]*planCacheEntry)
}

// Stats reports the cache counters.
func (c *PlanCache) Stats() PlanCacheStats {
	if c == nil {
		return PlanCacheStats{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return PlanCacheStats{
		Size:    len(c.store),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
	}
}

// evictOldest removes the oldest entry. Caller holds the lock.
func (c *PlanCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time
	for key, entry := range c.store {
		if oldestTime.IsZero() || entry.createdAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.createdAt
		}
	}
	if oldestKey != "" {
		delete(c.store, oldestKey)
	}
}

// PlanCacheStats are the explain cache counters.
type PlanCacheStats struct {
	Size    int
	MaxSize int
	Hits    int64
	Misses  int64
}

func (s PlanCacheStats) String() string {
	return fmt.Sprintf("size=%d/%d hits=%d misses=%d", s.Size, s.MaxSize, s.Hits, s.Misses)
}

// planCacheKey fingerprints one explain request. Session properties are
// part of the key: the same SQL plans differently under different
// distribution or reordering settings.
func planCacheKey(sql, catalogName string, props map[string]string) string {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	h := fnv.New64a()
	h.Write([]byte(sql))
	h.Write([]byte{0})
	h.Write([]byte(catalogName))
	for _, name := range names {
		h.Write([]byte{0})
		h.Write([]byte(name))
		h.Write([]byte{'='})
		h.Write([]byte(props[name]))
	}
	return fmt.Sprintf("%x", h.Sum64())
}
