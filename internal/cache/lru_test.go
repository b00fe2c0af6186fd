package cache

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"budgetwise/internal/clock"
	applog "budgetwise/internal/log"
)

func TestLRUCacheEviction(t *testing.T) {
	cache := NewLRUCache[string](3, time.Hour)

	cache.Set("key1", "value1")
	cache.Set("key2", "value2")
	cache.Set("key3", "value3")
	cache.Set("key4", "value4") // Should evict key1

	if _, found := cache.Get("key1"); found {
		t.Error("key1 should have been evicted")
	}
	for _, k := range []string{"key2", "key3", "key4"} {
		if _, found := cache.Get(k); !found {
			t.Errorf("%s should still exist", k)
		}
	}
	if cache.Size() != 3 {
		t.Errorf("expected size 3, got %d", cache.Size())
	}
}

func TestLRUCacheRecentlyUsedSurvives(t *testing.T) {
	cache := NewLRUCache[int](2, time.Hour)

	cache.Set("a", 1)
	cache.Set("b", 2)
	cache.Get("a")    // a is now most recent
	cache.Set("c", 3) // evicts b

	if _, found := cache.Get("b"); found {
		t.Error("b should have been evicted")
	}
	if v, found := cache.Get("a"); !found || v != 1 {
		t.Error("a should survive")
	}
}

func TestLRUCacheTTLExpiration(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	cache := NewLRUCacheWithClock[string](100, 50*time.Millisecond, clk)

	cache.Set("key1", "value1")
	if _, found := cache.Get("key1"); !found {
		t.Error("key1 should exist immediately")
	}

	clk.Advance(60 * time.Millisecond)
	if _, found := cache.Get("key1"); found {
		t.Error("key1 should have expired")
	}
	if cache.Size() != 0 {
		t.Error("expired entry should be removed on read")
	}
}

func TestLRUCacheDelete(t *testing.T) {
	cache := NewLRUCache[string](10, time.Hour)
	cache.Set("k", "v")
	cache.Delete("k")
	cache.Delete("missing")
	if _, found := cache.Get("k"); found {
		t.Error("k should be gone")
	}
}

func TestManagerStartStop(t *testing.T) {
	m := NewManager(applog.Discard())
	m.Register(NewLRUCache[string](1, time.Millisecond))
	m.StartCleanup(time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	m.Stop()
	m.Stop() // idempotent

	// Stop without start must not block
	NewManager(nil).Stop()
}

// lockedBuffer is a bytes.Buffer safe for the cleanup goroutine to write.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestManagerLogsEvictionsThroughComponentLogger(t *testing.T) {
	out := &lockedBuffer{}
	logger := applog.New(applog.Config{Writer: out, Format: "json", Level: slog.LevelDebug})

	clk := clock.NewManual(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	c := NewLRUCacheWithClock[string](4, time.Minute, clk)
	c.Set("a", "1")
	clk.Advance(2 * time.Minute)

	m := NewManager(logger)
	m.Register(c)
	m.StartCleanup(time.Millisecond)
	defer m.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(out.String(), "Evicted expired cache entries") {
		if time.Now().After(deadline) {
			t.Fatalf("no eviction log line, got %q", out.String())
		}
		time.Sleep(time.Millisecond)
	}
	if !strings.Contains(out.String(), `"component":"cache"`) {
		t.Errorf("eviction log should carry the cache component, got %q", out.String())
	}
}
