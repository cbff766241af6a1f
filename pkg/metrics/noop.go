package metrics

import "TradeDesk/internal/domain/models"

// Noop discards every measurement. Used where no registry is wanted.
type Noop struct{}

func (Noop) RecordCycle(string, string, string)      {}
func (Noop) RecordDecision(string, models.Direction) {}
func (Noop) RecordOrder(string, models.Side, string) {}
func (Noop) RecordMessageSent(string, string)        {}
func (Noop) RecordError(string)                      {}
func (Noop) RecordLastPrice(string, float64)         {}
func (Noop) RecordOpenPositions(int)                 {}
func (Noop) RecordLatency(string, float64)           {}
