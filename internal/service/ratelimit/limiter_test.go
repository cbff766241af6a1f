package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestAllowDrainsBucket(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		if !l.Allow("k", 3, 0.001) {
			t.Fatalf("token %d should be allowed", i)
		}
	}
	if l.Allow("k", 3, 0.001) {
		t.Fatalf("bucket should be empty")
	}
	if !l.Allow("other", 1, 0.001) {
		t.Fatalf("keys must not share buckets")
	}
}

func TestWaitRespectsContext(t *testing.T) {
	l := New()
	l.Allow("k", 1, 0.01)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx, "k", 1, 0.01); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestWaitRefills(t *testing.T) {
	l := New()
	l.Allow("k", 1, 100)
	start := time.Now()
	if err := l.Wait(context.Background(), "k", 1, 100); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("wait took too long")
	}
}
