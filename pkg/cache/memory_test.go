package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type filters struct {
	MinQty   float64 `json:"min_qty"`
	StepSize float64 `json:"step_size"`
}

func TestMemoryCacheRoundTripsStructs(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	in := filters{MinQty: 0.0001, StepSize: 0.0001}
	if err := mc.Set(ctx, "filters:BTCUSDT", in, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var out filters
	if err := mc.Get(ctx, "filters:BTCUSDT", &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	if out != in {
		t.Fatalf("expected %+v, got %+v", in, out)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "k", "v", time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	var s string
	if err := mc.Get(ctx, "k", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
}

func TestMemoryCacheEvictsAtCapacity(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "a", 1, 0)
	_ = mc.Set(ctx, "b", 2, 0)
	_ = mc.Set(ctx, "c", 3, 0)
	if mc.Len() != 2 {
		t.Fatalf("expected 2 items, got %d", mc.Len())
	}
	var v int
	if err := mc.Get(ctx, "c", &v); err != nil || v != 3 {
		t.Fatalf("newest key lost: %v %d", err, v)
	}
}

func TestMemoryCacheLock(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	ok, _ := mc.TryLock(ctx, "lock", time.Minute)
	if !ok {
		t.Fatal("first lock should succeed")
	}
	ok, _ = mc.TryLock(ctx, "lock", time.Minute)
	if ok {
		t.Fatal("second lock should fail")
	}
	_ = mc.Unlock(ctx, "lock")
	ok, _ = mc.TryLock(ctx, "lock", time.Minute)
	if !ok {
		t.Fatal("lock after unlock should succeed")
	}
}

func TestGetOrLoadCachesResult(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	calls := 0
	load := func(context.Context) (filters, error) {
		calls++
		return filters{MinQty: 1, StepSize: 1}, nil
	}
	for i := 0; i < 3; i++ {
		if _, err := GetOrLoad(ctx, mc, "f", time.Minute, load); err != nil {
			t.Fatalf("load: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected 1 load, got %d", calls)
	}
}
