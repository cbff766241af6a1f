package models

// TradingConfig holds the runtime-mutable risk parameters.
type TradingConfig struct {
	MaxPositionFraction float64 `json:"max_position_fraction" yaml:"max_position_fraction" default:"0.1"`
	StopLossFraction    float64 `json:"stop_loss_fraction" yaml:"stop_loss_fraction" default:"0.02"`
	TakeProfitFraction  float64 `json:"take_profit_fraction" yaml:"take_profit_fraction" default:"0.03"`
	MinOrderNotional    float64 `json:"min_order_notional" yaml:"min_order_notional" default:"10"`
}

// DefaultTradingConfig returns the documented defaults.
func DefaultTradingConfig() TradingConfig {
	return TradingConfig{
		MaxPositionFraction: 0.1,
		StopLossFraction:    0.02,
		TakeProfitFraction:  0.03,
		MinOrderNotional:    10,
	}
}

// Apply overlays the non-nil fields of a patch.
func (c TradingConfig) Apply(p ConfigPatch) TradingConfig {
	if p.MaxPositionFraction != nil {
		c.MaxPositionFraction = *p.MaxPositionFraction
	}
	if p.StopLossFraction != nil {
		c.StopLossFraction = *p.StopLossFraction
	}
	if p.TakeProfitFraction != nil {
		c.TakeProfitFraction = *p.TakeProfitFraction
	}
	if p.MinOrderNotional != nil {
		c.MinOrderNotional = *p.MinOrderNotional
	}
	return c
}

// ConfigPatch is a partial update of TradingConfig.
type ConfigPatch struct {
	MaxPositionFraction *float64 `json:"max_position_fraction" validate:"omitempty,gt=0,lte=1"`
	StopLossFraction    *float64 `json:"stop_loss_fraction" validate:"omitempty,gt=0,lt=1"`
	TakeProfitFraction  *float64 `json:"take_profit_fraction" validate:"omitempty,gt=0"`
	MinOrderNotional    *float64 `json:"min_order_notional" validate:"omitempty,gte=0"`
}
