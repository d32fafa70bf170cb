package secretcache

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a hand-advanced clock for TTL and LRU tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestPutThenGet(t *testing.T) {
	t.Parallel()
	c := New(Config{})
	secrets := map[string]string{"DATABASE_URL": "postgresql://u:p@h/db", "API_KEY": "abc123"}

	require.NoError(t, c.Put("Acme.Web", "production", secrets))

	got, ok := c.Get("Acme.Web", "production")
	require.True(t, ok)
	assert.Equal(t, secrets, got)

	_, ok = c.Get("Acme.Web", "staging")
	assert.False(t, ok, "different environment is a different entry")
	_, ok = c.Get("Acme.Other", "production")
	assert.False(t, ok, "different namespace is a different entry")
}

func TestGetReturnsCopy(t *testing.T) {
	t.Parallel()
	c := New(Config{})
	require.NoError(t, c.Put("ns", "development", map[string]string{"K": "v1"}))

	first, ok := c.Get("ns", "development")
	require.True(t, ok)
	first["K"] = "mutated"
	first["EXTRA"] = "x"

	second, ok := c.Get("ns", "development")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"K": "v1"}, second, "callers never hold live references into the cache")
}

func TestTTLExpiry(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	c := New(Config{DefaultTTL: 30 * time.Second, Clock: clock.Now})

	require.NoError(t, c.Put("ns", "production", map[string]string{"K": "v"}))

	got, ok := c.Get("ns", "production")
	require.True(t, ok)
	assert.Equal(t, "v", got["K"])

	clock.Advance(31 * time.Second)
	_, ok = c.Get("ns", "production")
	assert.False(t, ok, "entry must expire after the TTL elapses")
	assert.Equal(t, 0, c.Stats().Entries, "expired entries are evicted lazily on access")
	assert.Equal(t, int64(1), c.Stats().EvictionCount, "expiry counts as an eviction")
}

func TestLRUEviction(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	// Each entry is 10 bytes (2-byte key + 8-byte value); budget fits three.
	c := New(Config{MaxMemoryBytes: 30, DefaultTTL: time.Hour, Clock: clock.Now})

	val := "12345678"
	require.NoError(t, c.Put("a", "production", map[string]string{"k1": val}))
	clock.Advance(time.Second)
	require.NoError(t, c.Put("b", "production", map[string]string{"k2": val}))
	clock.Advance(time.Second)
	require.NoError(t, c.Put("c", "production", map[string]string{"k3": val}))
	clock.Advance(time.Second)

	// Touch "a" so "b" becomes the least recently used.
	_, ok := c.Get("a", "production")
	require.True(t, ok)
	clock.Advance(time.Second)

	require.NoError(t, c.Put("d", "production", map[string]string{"k4": val}))

	_, ok = c.Get("b", "production")
	assert.False(t, ok, "least-recently-used entry is evicted first")
	_, ok = c.Get("a", "production")
	assert.True(t, ok, "a recent Get protects an entry from eviction")
	_, ok = c.Get("c", "production")
	assert.True(t, ok)
	_, ok = c.Get("d", "production")
	assert.True(t, ok)
	assert.Equal(t, int64(1), c.Stats().EvictionCount)
}

func TestLRUEvictionTieBreaksOnInsertion(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	c := New(Config{MaxMemoryBytes: 20, DefaultTTL: time.Hour, Clock: clock.Now})

	val := "12345678"
	require.NoError(t, c.Put("first", "production", map[string]string{"k1": val}))
	clock.Advance(time.Second)
	require.NoError(t, c.Put("second", "production", map[string]string{"k2": val}))

	// Give both the same lastAccessedAt.
	clock.Advance(time.Second)
	_, _ = c.Get("first", "production")
	_, _ = c.Get("second", "production")
	clock.Advance(time.Second)

	require.NoError(t, c.Put("third", "production", map[string]string{"k3": val}))

	_, ok := c.Get("first", "production")
	assert.False(t, ok, "ties break on oldest insertion time")
	_, ok = c.Get("second", "production")
	assert.True(t, ok)
}

func TestOversizeEntryRejected(t *testing.T) {
	t.Parallel()
	c := New(Config{MaxMemoryBytes: 16})

	err := c.Put("ns", "production", map[string]string{"KEY": "a value that is far too large for the budget"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds the cache budget")
	assert.Equal(t, 0, c.Stats().Entries, "nothing is partially cached")
}

func TestRefreshReplacesWholesale(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	c := New(Config{DefaultTTL: 30 * time.Second, Clock: clock.Now})

	require.NoError(t, c.Put("ns", "production", map[string]string{"OLD": "old"}))
	clock.Advance(29 * time.Second)
	require.NoError(t, c.Refresh("ns", "production", map[string]string{"NEW": "new"}))

	// The replacement got a fresh TTL.
	clock.Advance(29 * time.Second)
	got, ok := c.Get("ns", "production")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"NEW": "new"}, got, "refresh replaces rather than merges")
}

func TestSecureClear(t *testing.T) {
	t.Parallel()
	c := New(Config{})
	secret := "super-secret-password-value"
	require.NoError(t, c.Put("ns", "production", map[string]string{"PASSWORD": secret}))

	// Capture the internal buffer before clearing.
	c.mu.Lock()
	e := c.entries[cacheKey("ns", "production")]
	require.NotNil(t, e)
	buf := e.vals[0]
	c.mu.Unlock()

	c.Clear()

	assert.False(t, bytes.Contains(buf, []byte(secret)),
		"the secret byte sequence must not survive clear()")
	for _, b := range buf {
		assert.EqualValues(t, fillerByte, b)
	}

	_, ok := c.Get("ns", "production")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Stats().Entries)
	assert.Equal(t, int64(0), c.Stats().MemoryUsageBytes)
}

func TestStatsHealthThresholds(t *testing.T) {
	t.Parallel()
	c := New(Config{MaxMemoryBytes: 100})

	require.NoError(t, c.Put("a", "production", map[string]string{"k": "123456789"})) // 10 bytes
	assert.Equal(t, HealthHealthy, c.Stats().HealthStatus)

	require.NoError(t, c.Put("b", "production", map[string]string{"k": string(make([]byte, 69))})) // 70 bytes
	s := c.Stats()
	assert.Equal(t, HealthWarning, s.HealthStatus)
	assert.InDelta(t, 80.0, s.PercentUsed, 0.01)

	require.NoError(t, c.Put("c", "production", map[string]string{"k": string(make([]byte, 14))})) // 15 bytes
	assert.Equal(t, HealthCritical, c.Stats().HealthStatus)
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()
	c := New(Config{MaxMemoryBytes: 1 << 20})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ns := fmt.Sprintf("ns-%d", n)
			for j := 0; j < 100; j++ {
				_ = c.Put(ns, "production", map[string]string{"K": fmt.Sprintf("v-%d", j)})
				if got, ok := c.Get(ns, "production"); ok {
					assert.Contains(t, got["K"], "v-")
				}
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 8, c.Stats().Entries)
}

func TestSweeperReclaimsExpired(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	c := New(Config{DefaultTTL: 30 * time.Second, Clock: clock.Now})

	require.NoError(t, c.Put("ns", "production", map[string]string{"K": "v"}))
	clock.Advance(31 * time.Second)

	c.StartSweeper(time.Millisecond)
	defer c.StopSweeper()

	assert.Eventually(t, func() bool {
		return c.Stats().Entries == 0
	}, time.Second, 5*time.Millisecond, "sweeper reclaims expired entries without a read")
	assert.Equal(t, int64(1), c.Stats().EvictionCount)
}

func TestSweeperRestartsAfterStop(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	c := New(Config{DefaultTTL: 30 * time.Second, Clock: clock.Now})

	c.StartSweeper(time.Millisecond)
	c.StopSweeper()
	c.StopSweeper() // stopping twice is harmless

	require.NoError(t, c.Put("ns", "production", map[string]string{"K": "v"}))
	clock.Advance(31 * time.Second)

	c.StartSweeper(time.Millisecond)
	defer c.StopSweeper()

	assert.Eventually(t, func() bool {
		return c.Stats().Entries == 0
	}, time.Second, 5*time.Millisecond, "a restarted sweeper keeps sweeping")
}

func TestEvictionNeverExposesWipedBytes(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	c := New(Config{MaxMemoryBytes: 25, DefaultTTL: time.Hour, Clock: clock.Now})

	const want = "12345678"
	require.NoError(t, c.Put("a", "production", map[string]string{"k1": want}))

	// Readers of "a" race against Puts on other namespaces that evict
	// "a" under memory pressure; a hit must always return intact bytes.
	var corrupted atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			if got, ok := c.Get("a", "production"); ok {
				if got["k1"] != want {
					corrupted.Store(true)
					return
				}
			} else {
				_ = c.Put("a", "production", map[string]string{"k1": want})
			}
		}
	}()

	for i := 0; i < 500; i++ {
		_ = c.Put("b", "production", map[string]string{"k2": want})
		_ = c.Put("c", "production", map[string]string{"k3": want})
	}
	<-done
	assert.False(t, corrupted.Load(), "a hit returned partially wiped secret bytes")
}
