package models

// Direction is the side a signal votes for.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
	Hold Direction = "HOLD"
)

// Signal is a directional vote with a confidence in [0, 100].
type Signal struct {
	Direction  Direction `json:"direction"`
	Confidence float64   `json:"confidence"`
}

// HoldSignal is the neutral vote.
func HoldSignal() Signal {
	return Signal{Direction: Hold, Confidence: 0}
}

// NewSignal clamps confidence into [0, 100]. HOLD always carries 0.
func NewSignal(d Direction, confidence float64) Signal {
	if d == Hold {
		return HoldSignal()
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}
	return Signal{Direction: d, Confidence: confidence}
}

// IsActionable reports whether the signal is directional and strictly above threshold.
func (s Signal) IsActionable(threshold float64) bool {
	return s.Direction != Hold && s.Confidence > threshold
}

// SignalPreview is the per-generator breakdown served by the control surface.
type SignalPreview struct {
	Symbol     string            `json:"symbol"`
	Interval   string            `json:"interval"`
	Price      float64           `json:"price"`
	Strategy   string            `json:"strategy"`
	Combined   Signal            `json:"combined"`
	Generators map[string]Signal `json:"generators"`
}
