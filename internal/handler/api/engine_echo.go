package api

import (
	"context"
	"errors"
	"time"

	"TradeDesk/internal/domain/models"
	"TradeDesk/internal/usecase"
	xhttp "TradeDesk/pkg/http"
	applogger "TradeDesk/pkg/logger"

	"github.com/labstack/echo/v4"
)

// EngineHandler exposes the trading engine over HTTP.
type EngineHandler struct {
	logger      *applogger.Logger
	engine      *usecase.Engine
	stopTimeout time.Duration
}

func NewEngineHandler(logger *applogger.Logger, engine *usecase.Engine) *EngineHandler {
	return &EngineHandler{logger: logger, engine: engine, stopTimeout: 30 * time.Second}
}

func (h *EngineHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/status", h.Status)
	g.POST("/start", h.Start)
	g.POST("/stop", h.Stop)
	g.GET("/config", h.GetConfig)
	g.PUT("/config", h.UpdateConfig)
	g.GET("/positions", h.Positions)
	g.POST("/positions", h.CreatePosition)
	g.PUT("/positions/:symbol", h.UpdatePosition)
	g.DELETE("/positions/:symbol", h.ClosePosition)
	g.GET("/statistics", h.Statistics)
	g.GET("/trades", h.Trades)
	g.GET("/balance", h.Balance)
	g.GET("/signals", h.Signals)
}

func (h *EngineHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.engine.Status(c.Request().Context()))
}

func (h *EngineHandler) Start(c echo.Context) error {
	req := &models.StartRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.engine.Start(c.Request().Context(), req.Symbol, req.Interval, req.Strategy); err != nil {
		return h.fail(c, "start", err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"symbol":   req.Symbol,
		"interval": req.Interval,
		"strategy": h.engine.Strategy().Name(),
		"workers":  h.engine.Workers(),
	})
}

// Stop halts one worker when symbol and interval are given, every worker of
// a symbol when only the symbol is given, and the whole engine otherwise.
func (h *EngineHandler) Stop(c echo.Context) error {
	req := &models.StopRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.stopTimeout)
	defer cancel()

	var err error
	switch {
	case req.Symbol == "":
		err = h.engine.Stop(ctx)
	case req.Interval != "":
		err = h.engine.StopWorker(ctx, req.Symbol, req.Interval)
	default:
		err = models.ErrWorkerNotFound
		for _, w := range h.engine.Workers() {
			if w.Symbol != req.Symbol {
				continue
			}
			if err = h.engine.StopWorker(ctx, w.Symbol, w.Interval); err != nil {
				break
			}
		}
	}
	if err != nil {
		return h.fail(c, "stop", err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"running": h.engine.Running(),
		"workers": h.engine.Workers(),
	})
}

func (h *EngineHandler) GetConfig(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.engine.Config())
}

func (h *EngineHandler) UpdateConfig(c echo.Context) error {
	req := &models.ConfigPatch{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	cfg, err := h.engine.UpdateConfig(*req)
	if err != nil {
		return h.fail(c, "update config", err)
	}
	return xhttp.SuccessResponse(c, cfg)
}

func (h *EngineHandler) Positions(c echo.Context) error {
	ps := h.engine.Positions()
	return xhttp.ListResponse(c, ps, int64(len(ps)))
}

func (h *EngineHandler) CreatePosition(c echo.Context) error {
	req := &models.CreatePositionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	pos, err := h.engine.CreatePosition(c.Request().Context(), req.Symbol, req.Quantity, req.EntryPrice)
	if err != nil {
		return h.fail(c, "create position", err)
	}
	return xhttp.CreatedResponse(c, pos)
}

func (h *EngineHandler) UpdatePosition(c echo.Context) error {
	req := &models.UpdatePositionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	pos, err := h.engine.UpdateRiskBounds(c.Request().Context(), req.Symbol, req.StopLoss, req.TakeProfit)
	if err != nil {
		return h.fail(c, "update position", err)
	}
	return xhttp.SuccessResponse(c, pos)
}

func (h *EngineHandler) ClosePosition(c echo.Context) error {
	req := &models.SymbolParam{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rec, err := h.engine.ClosePosition(c.Request().Context(), req.Symbol)
	if err != nil {
		return h.fail(c, "close position", err)
	}
	return xhttp.SuccessResponse(c, rec)
}

func (h *EngineHandler) Statistics(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.engine.Statistics())
}

func (h *EngineHandler) Trades(c echo.Context) error {
	req := &models.TradesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	trades := h.engine.Trades(req.Limit)
	return xhttp.ListResponse(c, trades, int64(len(trades)))
}

func (h *EngineHandler) Balance(c echo.Context) error {
	req := &models.BalanceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	bal, err := h.engine.Balance(c.Request().Context(), req.Asset)
	if err != nil {
		return h.fail(c, "balance", err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"asset":     req.Asset,
		"balance":   bal,
		"test_mode": h.engine.Simulated(),
	})
}

func (h *EngineHandler) Signals(c echo.Context) error {
	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.engine.Preview(c.Request().Context(), req.Symbol, req.Interval)
	if err != nil {
		return h.fail(c, "signals", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, res)
}

func (h *EngineHandler) fail(c echo.Context, op string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= 500 {
		h.logger.Error(op+" failed", applogger.Error(err))
	} else {
		h.logger.Debug(op+" refused", applogger.String("reason", err.Error()))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

// toAppError maps engine errors onto HTTP statuses.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, models.ErrPositionExists),
		errors.Is(err, models.ErrWorkerExists),
		errors.Is(err, models.ErrEngineBusy):
		return xhttp.ConflictError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrPositionNotFound),
		errors.Is(err, models.ErrWorkerNotFound):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrInvalidConfig),
		errors.Is(err, models.ErrInvalidInterval),
		errors.Is(err, models.ErrUnknownStrategy),
		errors.Is(err, models.ErrInsufficientFunds),
		errors.Is(err, models.ErrZeroQuantity):
		return xhttp.UnprocessableError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrPriceUnavailable),
		errors.Is(err, models.ErrNoMarketData),
		errors.Is(err, models.ErrOrderRejected),
		errors.Is(err, models.ErrUpstream):
		return xhttp.BadGatewayError(err.Error()).WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.NewAppError("ERR_TIMEOUT", "", err.Error(), 504).WithError(err)
	}
	return xhttp.InternalError("Something went wrong").WithError(err)
}
