package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"trend-trader/internal/domain"
	"trend-trader/internal/usecase"
)

// TradingLoop is the part of the cycle driver exposed over HTTP.
type TradingLoop interface {
	RunOnce(ctx context.Context) (usecase.CycleResult, error)
	State() domain.PositionState
	Dirty() bool
	LastResult() (usecase.CycleResult, bool)
	Params() usecase.StrategyParams
}

// TraderHandler serves the position, trade log and report endpoints.
type TraderHandler struct {
	loop    TradingLoop
	history domain.TradeHistory
	reports *usecase.ReportService
}

func NewTraderHandler(loop TradingLoop, history domain.TradeHistory) *TraderHandler {
	return &TraderHandler{
		loop:    loop,
		history: history,
		reports: usecase.NewReportService(history),
	}
}

func (h *TraderHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/status", h.Status)
	g.GET("/trades", h.Trades)
	g.GET("/report", h.Report)
	g.POST("/cycle/run", h.RunCycle)
}

type paramsView struct {
	Mode                domain.Mode `json:"mode"`
	Symbol              string      `json:"symbol"`
	Quantity            string      `json:"quantity"`
	Interval            string      `json:"interval"`
	BuyThreshold        string      `json:"buyThreshold"`
	SellThreshold       string      `json:"sellThreshold"`
	StopLoss            string      `json:"stopLoss"`
	TakeProfit          string      `json:"takeProfit"`
	Cooldown            string      `json:"cooldown"`
	CooldownEntriesOnly bool        `json:"cooldownEntriesOnly"`
	RSIUpper            string      `json:"rsiUpper"`
	RSILower            string      `json:"rsiLower"`
}

func newParamsView(p usecase.StrategyParams) paramsView {
	return paramsView{
		Mode:                p.Mode,
		Symbol:              p.Symbol,
		Quantity:            p.Quantity.String(),
		Interval:            p.Interval,
		BuyThreshold:        p.BuyThreshold.String(),
		SellThreshold:       p.SellThreshold.String(),
		StopLoss:            p.StopLoss.String(),
		TakeProfit:          p.TakeProfit.String(),
		Cooldown:            p.Cooldown.String(),
		CooldownEntriesOnly: p.CooldownEntriesOnly,
		RSIUpper:            p.RSIUpper.String(),
		RSILower:            p.RSILower.String(),
	}
}

type statusResponse struct {
	Position  domain.PositionState `json:"position"`
	Dirty     bool                 `json:"dirty"`
	LastCycle *usecase.CycleResult `json:"lastCycle,omitempty"`
	Params    paramsView           `json:"params"`
}

// Status handles GET /api/status
func (h *TraderHandler) Status(c echo.Context) error {
	resp := statusResponse{
		Position: h.loop.State(),
		Dirty:    h.loop.Dirty(),
		Params:   newParamsView(h.loop.Params()),
	}
	if last, ok := h.loop.LastResult(); ok {
		resp.LastCycle = &last
	}
	return successResponse(c, resp)
}

// Trades handles GET /api/trades?symbol=
func (h *TraderHandler) Trades(c echo.Context) error {
	symbol := c.QueryParam("symbol")
	if symbol == "" {
		symbol = h.loop.Params().Symbol
	}

	trades, err := h.history.ListClosedTrades(c.Request().Context(), symbol)
	if err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("list closed trades failed")
		return internalErrorResponse(c)
	}
	if trades == nil {
		trades = make([]domain.ClosedTradeRecord, 0)
	}
	return successResponse(c, trades)
}

// Report handles GET /api/report
func (h *TraderHandler) Report(c echo.Context) error {
	symbol := c.QueryParam("symbol")
	if symbol == "" {
		symbol = h.loop.Params().Symbol
	}

	report, err := h.reports.Generate(c.Request().Context(), symbol)
	if err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("generate report failed")
		return internalErrorResponse(c)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return successResponse(c, report)
}

type runCycleResponse struct {
	Cycle usecase.CycleResult `json:"cycle"`
	Error string              `json:"error,omitempty"`
}

// RunCycle handles POST /api/cycle/run. The cycle is detached from the
// request so a client disconnect cannot interrupt an order in flight.
func (h *TraderHandler) RunCycle(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), time.Minute)
	defer cancel()

	res, err := h.loop.RunOnce(ctx)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, usecase.ErrPersistState) {
			status = http.StatusServiceUnavailable
		}
		return dataResponse(c, status, runCycleResponse{Cycle: res, Error: err.Error()})
	}
	return successResponse(c, runCycleResponse{Cycle: res})
}
