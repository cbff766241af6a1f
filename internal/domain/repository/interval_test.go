package repository

import (
	"testing"
	"time"
)

func TestNormalizeInterval(t *testing.T) {
	if got := NormalizeInterval(""); got != Interval1h {
		t.Fatalf("expected default 1h, got %s", got)
	}
	if got := NormalizeInterval("15m"); got != Interval15m {
		t.Fatalf("expected 15m, got %s", got)
	}
	if got := NormalizeInterval("7m"); got != Interval1h {
		t.Fatalf("expected fallback 1h, got %s", got)
	}
}

func TestIntervalDuration(t *testing.T) {
	if Interval4h.Duration() != 4*time.Hour {
		t.Fatalf("unexpected duration %v", Interval4h.Duration())
	}
	if Interval("bogus").Duration() != 0 {
		t.Fatalf("expected zero duration for unknown interval")
	}
}
