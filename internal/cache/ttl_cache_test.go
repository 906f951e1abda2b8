package cache

import (
	"testing"
	"time"
)

func TestTTLCacheExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTLCache[string, int]()
	c.now = func() time.Time { return now }

	c.Set("a", 1, time.Minute)
	c.Set("forever", 2, 0)

	now = now.Add(30 * time.Second)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %v, %v", v, ok)
	}
	// the Get above refreshed the idle timeout
	now = now.Add(45 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("entry expired despite recent access")
	}
	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatal("entry should have expired")
	}
	if _, ok := c.Get("forever"); !ok {
		t.Fatal("zero ttl entry expired")
	}
}

func TestTTLCacheSweep(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTLCache[string, string]()
	c.now = func() time.Time { return now }
	c.Set("old", "x", time.Second)
	c.Set("new", "y", time.Hour)

	now = now.Add(time.Minute)
	if n := c.Sweep(); n != 1 {
		t.Fatalf("Sweep removed %d entries, want 1", n)
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d", c.Len())
	}
	c.Delete("new")
	if c.Len() != 0 {
		t.Fatalf("Len after delete = %d", c.Len())
	}
}

func TestNilCacheIsSafe(t *testing.T) {
	var c *TTLCache[string, int]
	c.Set("a", 1, time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatal("nil cache returned a value")
	}
	c.Delete("a")
	if c.Sweep() != 0 || c.Len() != 0 {
		t.Fatal("nil cache reported entries")
	}
}
