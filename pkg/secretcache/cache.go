// Package secretcache is a bounded, namespaced, in-memory store of fetched
// secret maps. Entries live in memory only, expire after a TTL, are evicted
// least-recently-used when the memory budget is exceeded, and are
// overwritten with filler bytes before being dropped so secret material does
// not linger in freed memory.
package secretcache

import (
	"sort"
	"sync"
	"time"

	"github.com/stackphase/envault/pkg/envault_err"
	"go.uber.org/zap"
)

// fillerByte overwrites secret bytes on eviction and clear.
const fillerByte = 0xAA

// evictionLogInterval: the first eviction is logged, then every Nth, to
// avoid flooding under memory pressure.
const evictionLogInterval = 10

// HealthStatus summarizes memory pressure.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"  // <75% used
	HealthWarning  HealthStatus = "warning"  // 75-90%
	HealthCritical HealthStatus = "critical" // >90%
)

// Stats is a point-in-time snapshot of cache state.
type Stats struct {
	Entries          int          `json:"entries"`
	MemoryUsageBytes int64        `json:"memoryUsageBytes"`
	MaxMemoryBytes   int64        `json:"maxMemoryBytes"`
	PercentUsed      float64      `json:"percentUsed"`
	EvictionCount    int64        `json:"evictionCount"`
	HealthStatus     HealthStatus `json:"healthStatus"`
}

// Config parametrizes a Cache.
type Config struct {
	MaxMemoryBytes int64
	DefaultTTL     time.Duration
	Logger         *zap.Logger
	// Clock is swapped in tests to simulate TTL expiry.
	Clock func() time.Time
}

type entry struct {
	namespace   string
	environment string

	// mu guards keys/vals against a wipe racing an in-flight copy; the
	// remaining fields are guarded by the cache index mutex.
	mu   sync.RWMutex
	keys []string
	vals [][]byte

	insertedAt     time.Time
	lastAccessedAt time.Time
	sizeBytes      int64
	ttl            time.Duration
}

func (e *entry) expired(now time.Time) bool {
	return now.Sub(e.insertedAt) >= e.ttl
}

// wipe overwrites every stored secret byte with the filler pattern.
func (e *entry) wipe() {
	for _, v := range e.vals {
		for i := range v {
			v[i] = fillerByte
		}
	}
}

// Cache is safe for concurrent use. Operations on the same
// (namespace, environment) key are strictly serialized by a per-key lock;
// the index mutex is held only for map and accounting mutations, and the
// value copy in Get runs outside it under the entry's read lock, so lookups
// for distinct namespaces do not contend on each other's work.
type Cache struct {
	mu       sync.Mutex
	keyLocks map[string]*sync.Mutex
	entries  map[string]*entry

	maxMemory   int64
	defaultTTL  time.Duration
	memoryUsage int64
	evictions   int64
	warned75    bool

	clock func() time.Time
	log   *zap.Logger

	sweepStop chan struct{}
}

// New builds a Cache from config, applying defaults for zero fields.
func New(cfg Config) *Cache {
	if cfg.MaxMemoryBytes <= 0 {
		cfg.MaxMemoryBytes = 10 * 1024 * 1024
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 5 * time.Minute
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Cache{
		keyLocks:   make(map[string]*sync.Mutex),
		entries:    make(map[string]*entry),
		maxMemory:  cfg.MaxMemoryBytes,
		defaultTTL: cfg.DefaultTTL,
		clock:      cfg.Clock,
		log:        cfg.Logger,
	}
}

func cacheKey(namespace, environment string) string {
	return namespace + "/" + environment
}

// keyLock returns the per-key operation lock, creating it on first use.
func (c *Cache) keyLock(key string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.keyLocks[key]
	if !ok {
		l = &sync.Mutex{}
		c.keyLocks[key] = l
	}
	return l
}

// Get returns a copy of a live entry's secrets and touches its access time.
// Expired entries are evicted lazily here as well as by the sweeper.
func (c *Cache) Get(namespace, environment string) (map[string]string, bool) {
	key := cacheKey(namespace, environment)
	l := c.keyLock(key)
	l.Lock()
	defer l.Unlock()

	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return nil, false
	}
	if e.expired(c.clock()) {
		c.removeLocked(key, "expired")
		c.mu.Unlock()
		return nil, false
	}
	e.lastAccessedAt = c.clock()
	e.mu.RLock()
	c.mu.Unlock()

	// Copy out without the index lock; the entry read lock keeps an
	// eviction on another key from wiping these buffers mid-copy.
	out := make(map[string]string, len(e.keys))
	for i, k := range e.keys {
		out[k] = string(e.vals[i])
	}
	e.mu.RUnlock()
	return out, true
}

// Put inserts an entry under the default TTL, evicting LRU entries as
// needed. A single entry larger than the whole budget is rejected with a
// capacity error rather than partially cached.
func (c *Cache) Put(namespace, environment string, secrets map[string]string) error {
	return c.store(namespace, environment, secrets)
}

// Refresh replaces any existing entry wholesale, without consulting its TTL.
// Used after an explicit re-fetch.
func (c *Cache) Refresh(namespace, environment string, secrets map[string]string) error {
	return c.store(namespace, environment, secrets)
}

func (c *Cache) store(namespace, environment string, secrets map[string]string) error {
	key := cacheKey(namespace, environment)
	l := c.keyLock(key)
	l.Lock()
	defer l.Unlock()

	// Measured, not estimated: serialized key+value byte lengths.
	var size int64
	for k, v := range secrets {
		size += int64(len(k)) + int64(len(v))
	}
	if size > c.maxMemory {
		return envault_err.New(envault_err.KindCacheCapacity,
			"entry for %s/%s (%d bytes) exceeds the cache budget (%d bytes)",
			namespace, environment, size, c.maxMemory).
			WithSuggestion("raise cache_max_bytes or trim the secret set")
	}

	// Built before the index lock; only the map insert and accounting
	// below need it.
	now := c.clock()
	e := &entry{
		namespace:      namespace,
		environment:    environment,
		keys:           make([]string, 0, len(secrets)),
		vals:           make([][]byte, 0, len(secrets)),
		insertedAt:     now,
		lastAccessedAt: now,
		sizeBytes:      size,
		ttl:            c.defaultTTL,
	}
	for k, v := range secrets {
		e.keys = append(e.keys, k)
		e.vals = append(e.vals, []byte(v))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.removeLocked(key, "replaced")
	}

	for c.memoryUsage+size > c.maxMemory {
		victim := c.lruVictimLocked()
		if victim == "" {
			break
		}
		c.evictLocked(victim)
	}

	c.entries[key] = e
	c.memoryUsage += size

	c.checkPressureLocked()
	return nil
}

// lruVictimLocked picks the least-recently-used entry, ties broken by
// oldest insertion.
func (c *Cache) lruVictimLocked() string {
	var victim string
	var victimEntry *entry
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	// Deterministic scan order keeps eviction reproducible.
	sort.Strings(keys)
	for _, k := range keys {
		e := c.entries[k]
		if victimEntry == nil ||
			e.lastAccessedAt.Before(victimEntry.lastAccessedAt) ||
			(e.lastAccessedAt.Equal(victimEntry.lastAccessedAt) && e.insertedAt.Before(victimEntry.insertedAt)) {
			victim = k
			victimEntry = e
		}
	}
	return victim
}

func (c *Cache) evictLocked(key string) {
	c.removeLocked(key, "lru")
	c.evictions++
	if (c.evictions-1)%evictionLogInterval == 0 {
		c.log.Info("Cache entry evicted under memory pressure",
			zap.String("key", key),
			zap.Int64("eviction_count", c.evictions),
			zap.Int64("memory_usage_bytes", c.memoryUsage))
	}
}

// removeLocked wipes and drops one entry. Caller holds c.mu. Expired
// removals count as evictions alongside LRU ones; replacement does not.
func (c *Cache) removeLocked(key, reason string) {
	e, ok := c.entries[key]
	if !ok {
		return
	}
	e.mu.Lock()
	e.wipe()
	e.mu.Unlock()
	c.memoryUsage -= e.sizeBytes
	delete(c.entries, key)
	if reason == "expired" {
		c.evictions++
		c.log.Debug("Expired cache entry removed", zap.String("key", key))
	}
}

// checkPressureLocked emits a one-time warning each time usage crosses the
// 75% threshold upward.
func (c *Cache) checkPressureLocked() {
	pct := c.percentUsedLocked()
	if pct >= 75 && !c.warned75 {
		c.warned75 = true
		c.log.Warn("Secret cache memory usage is high",
			zap.Float64("percent_used", pct),
			zap.Int64("memory_usage_bytes", c.memoryUsage),
			zap.Int64("max_memory_bytes", c.maxMemory))
	} else if pct < 75 {
		c.warned75 = false
	}
}

func (c *Cache) percentUsedLocked() float64 {
	if c.maxMemory == 0 {
		return 0
	}
	return float64(c.memoryUsage) / float64(c.maxMemory) * 100
}

// Clear wipes every entry. Invoked on process exit and on interrupt
// signals, and manually via the API.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		e.mu.Lock()
		e.wipe()
		e.mu.Unlock()
	}
	c.entries = make(map[string]*entry)
	c.memoryUsage = 0
	c.log.Debug("Secret cache cleared")
}

// Stats returns a snapshot of cache health.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	pct := c.percentUsedLocked()
	health := HealthHealthy
	switch {
	case pct > 90:
		health = HealthCritical
	case pct >= 75:
		health = HealthWarning
	}
	return Stats{
		Entries:          len(c.entries),
		MemoryUsageBytes: c.memoryUsage,
		MaxMemoryBytes:   c.maxMemory,
		PercentUsed:      pct,
		EvictionCount:    c.evictions,
		HealthStatus:     health,
	}
}

// StartSweeper reclaims expired-but-unread entries on an interval so memory
// stays bounded under low read traffic. Stop it with StopSweeper.
func (c *Cache) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	c.mu.Lock()
	if c.sweepStop != nil {
		c.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	c.sweepStop = stop
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.sweep()
			}
		}
	}()
}

// StopSweeper terminates the background sweep, if running. A stopped cache
// can start a fresh sweeper again.
func (c *Cache) StopSweeper() {
	c.mu.Lock()
	stop := c.sweepStop
	c.sweepStop = nil
	c.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}

func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock()
	for key, e := range c.entries {
		if e.expired(now) {
			c.removeLocked(key, "expired")
		}
	}
}
