package sizing

import (
	"errors"
	"testing"

	"TradeDesk/internal/domain/models"
)

var btcFilters = models.SymbolFilters{MinQty: 0.00001, MaxQty: 9000, StepSize: 0.00001}

func TestQuantizeFloorsToStep(t *testing.T) {
	got := Quantize(0.0123456, models.SymbolFilters{StepSize: 0.001})
	if got != 0.012 {
		t.Fatalf("expected 0.012, got %v", got)
	}
}

func TestQuantizeClamps(t *testing.T) {
	f := models.SymbolFilters{MinQty: 1, MaxQty: 10, StepSize: 1}
	if got := Quantize(0.4, f); got != 1 {
		t.Fatalf("expected min clamp 1, got %v", got)
	}
	if got := Quantize(25.7, f); got != 10 {
		t.Fatalf("expected max clamp 10, got %v", got)
	}
	if got := Quantize(1e9, models.SymbolFilters{StepSize: 1}); got != 1e9 {
		t.Fatalf("expected unbounded max, got %v", got)
	}
}

func TestQuantizeIdempotent(t *testing.T) {
	for _, raw := range []float64{0.1, 0.123456789, 3.3333, 12.5, 0.00001} {
		once := Quantize(raw, btcFilters)
		if twice := Quantize(once, btcFilters); twice != once {
			t.Fatalf("raw %v: %v != %v", raw, once, twice)
		}
	}
}

func TestQuantizeMonotonic(t *testing.T) {
	prev := -1.0
	for raw := 0.0; raw < 0.01; raw += 0.0000037 {
		q := Quantize(raw, btcFilters)
		if q < prev {
			t.Fatalf("quantity decreased at raw %v: %v < %v", raw, q, prev)
		}
		prev = q
	}
}

func TestOrderQuantityInsufficient(t *testing.T) {
	cfg := models.DefaultTradingConfig()
	_, err := OrderQuantity(50, 100, cfg, btcFilters)
	if !errors.Is(err, models.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestOrderQuantity(t *testing.T) {
	cfg := models.DefaultTradingConfig()
	q, err := OrderQuantity(1000, 40000, cfg, btcFilters)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q != 0.0025 {
		t.Fatalf("expected 0.0025, got %v", q)
	}
}
