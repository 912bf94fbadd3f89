package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"trend-trader/internal/domain"
)

// CycleAction is the outcome of one strategy cycle.
type CycleAction string

const (
	ActionSkippedNoData      CycleAction = "SKIPPED_NO_DATA"
	ActionSkippedCooldown    CycleAction = "SKIPPED_COOLDOWN"
	ActionHold               CycleAction = "HOLD"
	ActionOpened             CycleAction = "OPENED"
	ActionClosed             CycleAction = "CLOSED"
	ActionStopAdjusted       CycleAction = "STOP_ADJUSTED"
	ActionOrderFailed        CycleAction = "ORDER_FAILED"
	ActionInsufficientFunds  CycleAction = "INSUFFICIENT_FUNDS"
	ActionBalanceUnavailable CycleAction = "BALANCE_UNAVAILABLE"
)

// CycleResult describes what a cycle saw and did.
type CycleResult struct {
	Action   CycleAction               `json:"action"`
	Reason   string                    `json:"reason,omitempty"`
	Time     time.Time                 `json:"time"`
	Snapshot domain.IndicatorSnapshot  `json:"snapshot"`
	State    domain.PositionState      `json:"state"`
	Order    *domain.OrderResult       `json:"order,omitempty"`
	Trade    *domain.ClosedTradeRecord `json:"trade,omitempty"`
	Mutated  bool                      `json:"-"`
}

// StrategyEngine applies the entry, trailing-stop and exit rules to one
// snapshot. It never persists; the caller commits State when Mutated is set.
type StrategyEngine struct {
	params   StrategyParams
	orders   domain.OrderExecutor
	balances domain.BalanceProvider
}

// NewStrategyEngine creates an engine. balances may be nil in futures mode.
func NewStrategyEngine(params StrategyParams, orders domain.OrderExecutor, balances domain.BalanceProvider) *StrategyEngine {
	return &StrategyEngine{params: params, orders: orders, balances: balances}
}

// Params returns the engine configuration.
func (e *StrategyEngine) Params() StrategyParams { return e.params }

// Step runs the per-cycle state machine against the current state.
// State in the result is only different from the input when Mutated is true.
func (e *StrategyEngine) Step(ctx context.Context, snap domain.IndicatorSnapshot, state domain.PositionState, now time.Time) CycleResult {
	res := CycleResult{Time: now, Snapshot: snap, State: state}

	if !snap.Price.IsPositive() || !snap.SMA.IsPositive() {
		res.Action = ActionSkippedNoData
		return res
	}

	if state.InCooldown(now, e.params.Cooldown) && !(e.params.CooldownEntriesOnly && state.IsOpen) {
		res.Action = ActionSkippedCooldown
		res.Reason = "cooldown until " + state.LastTradeTime.Add(e.params.Cooldown).Format(time.RFC3339)
		return res
	}

	if !state.IsOpen {
		return e.evaluateEntry(ctx, res)
	}
	return e.manageOpen(ctx, res)
}

func (e *StrategyEngine) evaluateEntry(ctx context.Context, res CycleResult) CycleResult {
	p := e.params
	snap := res.Snapshot

	side, ok := p.entrySignal(snap)
	if !ok {
		res.Action = ActionHold
		return res
	}

	if p.Mode == domain.ModeSpot {
		if e.balances == nil {
			res.Action = ActionBalanceUnavailable
			return res
		}
		balance, err := e.balances.FetchAvailableBalance(ctx, p.QuoteAsset)
		if err != nil {
			log.Warn().Err(err).Str("asset", p.QuoteAsset).Msg("balance query failed, skipping entry")
			res.Action = ActionBalanceUnavailable
			res.Reason = err.Error()
			return res
		}
		required := p.requiredBalance(snap.Price)
		if balance.LessThan(required) {
			log.Warn().
				Str("asset", p.QuoteAsset).
				Str("balance", balance.String()).
				Str("required", required.String()).
				Msg("insufficient balance, skipping entry")
			res.Action = ActionInsufficientFunds
			res.Reason = "balance " + balance.String() + " < " + required.String()
			return res
		}
	}

	req := domain.OrderRequest{
		Symbol:        p.Symbol,
		Side:          domain.EntrySide(side),
		Quantity:      p.Quantity,
		ClientOrderID: uuid.NewString(),
	}
	if p.Mode.Bidirectional() {
		req.PositionSide = side
	}

	order, err := e.orders.SubmitMarketOrder(ctx, req)
	if err != nil || order == nil {
		log.Error().Err(err).Str("symbol", p.Symbol).Str("side", string(side)).Msg("entry order failed")
		res.Action = ActionOrderFailed
		if err != nil {
			res.Reason = err.Error()
		}
		return res
	}

	res.State = res.State.Opened(side, snap.Price, p.Quantity, order.OrderID, res.Time)
	res.Order = order
	res.Action = ActionOpened
	res.Mutated = true

	log.Info().
		Str("symbol", p.Symbol).
		Str("side", string(side)).
		Str("price", snap.Price.String()).
		Str("orderId", order.OrderID).
		Msg("position opened")
	return res
}

func (e *StrategyEngine) manageOpen(ctx context.Context, res CycleResult) CycleResult {
	p := e.params
	snap := res.Snapshot
	current := res.State

	gain := current.Gain(snap.Price)
	next, adjusted := p.ratchet(current, gain)
	if adjusted {
		log.Info().
			Str("symbol", p.Symbol).
			Str("gain", gain.StringFixed(4)).
			Str("dynamicStop", next.DynamicStop.Decimal.String()).
			Bool("breakeven", next.MovedToBreakeven).
			Bool("partialLock", next.MovedToPartialLock).
			Msg("dynamic stop raised")
	}

	reason, exit := p.exitReason(next, snap, gain)
	if !exit {
		res.State = next
		res.Action = ActionHold
		if adjusted {
			res.Action = ActionStopAdjusted
			res.Mutated = true
		}
		return res
	}

	qty := current.Quantity
	if !qty.IsPositive() {
		qty = p.Quantity
	}
	req := domain.OrderRequest{
		Symbol:        p.Symbol,
		Side:          domain.ExitSide(current.Side),
		Quantity:      qty,
		ClientOrderID: uuid.NewString(),
	}
	if p.Mode.Bidirectional() {
		req.PositionSide = current.Side
	}

	order, err := e.orders.SubmitMarketOrder(ctx, req)
	if err != nil || order == nil {
		log.Error().Err(err).Str("symbol", p.Symbol).Str("reason", string(reason)).Msg("close order failed")
		res.Action = ActionOrderFailed
		res.Reason = string(reason)
		return res
	}

	trade := domain.NewClosedTradeRecord(next, snap.Price, qty, reason, order.OrderID, res.Time)
	res.State = next.Closed(res.Time)
	res.Order = order
	res.Trade = &trade
	res.Action = ActionClosed
	res.Reason = string(reason)
	res.Mutated = true

	log.Info().
		Str("symbol", p.Symbol).
		Str("side", string(trade.Side)).
		Str("reason", string(reason)).
		Str("entry", trade.EntryPrice.String()).
		Str("exit", trade.ExitPrice.String()).
		Str("pnlPercent", trade.PnLPercent.String()).
		Str("result", string(trade.Result)).
		Msg("position closed")
	return res
}
