package models

import "errors"

var (
	ErrPositionExists    = errors.New("position already open")
	ErrPositionNotFound  = errors.New("position not found")
	ErrInsufficientFunds = errors.New("order notional below minimum")
	ErrZeroQuantity      = errors.New("sized quantity is zero")
	ErrOrderRejected     = errors.New("order not acknowledged")
	ErrWorkerExists      = errors.New("worker already running")
	ErrWorkerNotFound    = errors.New("worker not running")
	ErrEngineBusy        = errors.New("strategy cannot change while workers run")
	ErrUnknownStrategy   = errors.New("unknown strategy")
	ErrNoMarketData      = errors.New("no market data")
	ErrPriceUnavailable  = errors.New("price unavailable")
	ErrInvalidConfig     = errors.New("invalid trading config")
	ErrInvalidInterval   = errors.New("unsupported interval")
	ErrUpstream          = errors.New("exchange request failed")
)
