package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestTTLCacheGetSet(t *testing.T) {
	c := NewTTLCache[string, int](10)

	c.Set("a", 1, time.Minute)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected hit with 1, got %d %v", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss")
	}

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected miss after delete")
	}
}

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache[string, int](10)

	c.Set("short", 1, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("short"); ok {
		t.Fatal("expected expired entry to miss")
	}
	if c.Len() != 0 {
		t.Fatalf("expired read must remove the entry, len %d", c.Len())
	}
}

func TestTTLCacheBound(t *testing.T) {
	c := NewTTLCache[string, int](5)

	for i := 0; i < 50; i++ {
		c.Set(fmt.Sprintf("key-%d", i), i, time.Minute)
	}
	if c.Len() > 5 {
		t.Fatalf("cache exceeded its bound: %d entries", c.Len())
	}

	// The most recent write always lands.
	if v, ok := c.Get("key-49"); !ok || v != 49 {
		t.Fatalf("expected latest entry to survive, got %d %v", v, ok)
	}
}

func TestTTLCacheEvictsExpiredBeforeLive(t *testing.T) {
	c := NewTTLCache[string, int](3)

	c.Set("live-1", 1, time.Hour)
	c.Set("live-2", 2, time.Hour)
	c.Set("dead", 3, time.Nanosecond)
	time.Sleep(time.Millisecond)

	c.Set("live-3", 4, time.Hour)

	for _, key := range []string{"live-1", "live-2", "live-3"} {
		if _, ok := c.Get(key); !ok {
			t.Fatalf("live entry %q evicted while an expired entry existed", key)
		}
	}
}

func TestTTLCacheOverwriteDoesNotEvict(t *testing.T) {
	c := NewTTLCache[string, int](2)

	c.Set("a", 1, time.Hour)
	c.Set("b", 2, time.Hour)
	c.Set("a", 10, time.Hour)

	if v, ok := c.Get("a"); !ok || v != 10 {
		t.Fatalf("expected overwrite, got %d %v", v, ok)
	}
	if _, ok := c.Get("b"); !ok {
		t.Fatal("overwriting an existing key must not evict others")
	}
}
