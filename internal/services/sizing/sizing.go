package sizing

import (
	"fmt"

	"TradeDesk/internal/domain/models"

	"github.com/shopspring/decimal"
)

// Quantize floors raw to a multiple of the step size and clamps the result
// into [MinQty, MaxQty]. MaxQty of zero means unbounded. Decimal arithmetic
// keeps repeated application stable.
func Quantize(raw float64, f models.SymbolFilters) float64 {
	q := decimal.NewFromFloat(raw)
	if q.IsNegative() {
		q = decimal.Zero
	}
	if f.StepSize > 0 {
		step := decimal.NewFromFloat(f.StepSize)
		q = q.Div(step).Floor().Mul(step)
	}
	if f.MaxQty > 0 {
		q = decimal.Min(q, decimal.NewFromFloat(f.MaxQty))
	}
	q = decimal.Max(q, decimal.NewFromFloat(f.MinQty))
	out, _ := q.Float64()
	return out
}

// Budget returns the quote amount available for one entry.
func Budget(balance float64, cfg models.TradingConfig) (float64, error) {
	budget := decimal.NewFromFloat(balance).Mul(decimal.NewFromFloat(cfg.MaxPositionFraction))
	if budget.LessThan(decimal.NewFromFloat(cfg.MinOrderNotional)) {
		amount, _ := budget.Float64()
		return amount, fmt.Errorf("%w: %.8f < %.8f", models.ErrInsufficientFunds, amount, cfg.MinOrderNotional)
	}
	amount, _ := budget.Float64()
	return amount, nil
}

// OrderQuantity sizes a market entry at price from the account balance.
func OrderQuantity(balance, price float64, cfg models.TradingConfig, f models.SymbolFilters) (float64, error) {
	if price <= 0 {
		return 0, fmt.Errorf("invalid price %v", price)
	}
	budget, err := Budget(balance, cfg)
	if err != nil {
		return 0, err
	}
	raw := decimal.NewFromFloat(budget).Div(decimal.NewFromFloat(price))
	rawF, _ := raw.Float64()
	q := Quantize(rawF, f)
	if q <= 0 {
		return 0, models.ErrZeroQuantity
	}
	return q, nil
}
