package cache

import (
	"testing"
	"time"
)

func TestTTLCacheExpires(t *testing.T) {
	c := NewTTLCache[float64](time.Second)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("BTCUSDT", 40000)
	if v, ok := c.Get("BTCUSDT"); !ok || v != 40000 {
		t.Fatalf("expected fresh hit, got %v %v", v, ok)
	}
	now = now.Add(2 * time.Second)
	if _, ok := c.Get("BTCUSDT"); ok {
		t.Fatalf("expected expiry")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not evicted")
	}
}

func TestTTLCacheNoTTL(t *testing.T) {
	c := NewTTLCache[string](0)
	c.Set("k", "v")
	if _, at, ok := c.GetWithTime("k"); !ok || at.IsZero() {
		t.Fatalf("expected hit with timestamp")
	}
}
