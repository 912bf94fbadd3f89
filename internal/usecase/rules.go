package usecase

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"trend-trader/internal/domain"
	"trend-trader/internal/infrastructure/indicators"
)

var (
	one           = decimal.NewFromInt(1)
	halfwayFactor = decimal.RequireFromString("0.5")
	almostFactor  = decimal.RequireFromString("0.8")
	lockFactor    = decimal.RequireFromString("0.3")
)

// ErrInvalidParams is returned for a StrategyParams that cannot trade.
var ErrInvalidParams = errors.New("invalid strategy params")

// StrategyParams is the decision configuration of one engine instance.
// Ratios are expressed as gain multiples, e.g. TakeProfit 1.03 is +3%.
type StrategyParams struct {
	Mode                domain.Mode
	Symbol              string
	QuoteAsset          string
	Quantity            decimal.Decimal
	Interval            string
	Lookback            int
	BuyThreshold        decimal.Decimal
	SellThreshold       decimal.Decimal
	StopLoss            decimal.Decimal
	TakeProfit          decimal.Decimal
	Cooldown            time.Duration
	CooldownEntriesOnly bool
	RSIUpper            decimal.Decimal
	RSILower            decimal.Decimal
	BalanceSafetyMargin decimal.Decimal
	Periods             indicators.Periods
}

// DefaultStrategyParams mirrors the production defaults for a mode.
func DefaultStrategyParams(mode domain.Mode) StrategyParams {
	upper, lower := decimal.NewFromInt(70), decimal.NewFromInt(30)
	if mode.Bidirectional() {
		upper, lower = decimal.NewFromInt(75), decimal.NewFromInt(25)
	}
	return StrategyParams{
		Mode:                mode,
		Symbol:              "BTCUSDT",
		QuoteAsset:          "USDT",
		Quantity:            decimal.RequireFromString("0.00015"),
		Interval:            "15m",
		Lookback:            21,
		BuyThreshold:        decimal.RequireFromString("0.99"),
		SellThreshold:       decimal.RequireFromString("1.01"),
		StopLoss:            decimal.RequireFromString("0.99"),
		TakeProfit:          decimal.RequireFromString("1.03"),
		Cooldown:            3 * time.Minute,
		RSIUpper:            upper,
		RSILower:            lower,
		BalanceSafetyMargin: decimal.RequireFromString("0.005"),
		Periods:             indicators.DefaultPeriods(),
	}
}

func (p StrategyParams) Validate() error {
	switch {
	case p.Mode != domain.ModeSpot && p.Mode != domain.ModeFutures:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidParams, p.Mode)
	case p.Symbol == "":
		return fmt.Errorf("%w: symbol is required", ErrInvalidParams)
	case !p.Quantity.IsPositive():
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidParams)
	case p.Lookback < 1:
		return fmt.Errorf("%w: lookback must be positive", ErrInvalidParams)
	case !p.StopLoss.IsPositive() || p.StopLoss.GreaterThanOrEqual(one):
		return fmt.Errorf("%w: stop loss must be in (0,1)", ErrInvalidParams)
	case p.TakeProfit.LessThanOrEqual(one):
		return fmt.Errorf("%w: take profit must be above 1", ErrInvalidParams)
	case p.Cooldown < 0:
		return fmt.Errorf("%w: negative cooldown", ErrInvalidParams)
	}
	return nil
}

// bullish is the LONG entry condition.
func (p StrategyParams) bullish(s domain.IndicatorSnapshot) bool {
	if !s.RSI.Valid {
		return false
	}
	return s.EMAFast.GreaterThan(s.EMASlow) &&
		s.RSI.Decimal.LessThan(p.RSIUpper) &&
		s.Price.LessThanOrEqual(s.SMA.Mul(p.BuyThreshold))
}

// bearish is the SHORT entry condition and the spot indicator exit.
func (p StrategyParams) bearish(s domain.IndicatorSnapshot) bool {
	if !s.RSI.Valid {
		return false
	}
	return s.EMAFast.LessThan(s.EMASlow) &&
		s.RSI.Decimal.GreaterThan(p.RSILower) &&
		s.Price.GreaterThanOrEqual(s.SMA.Mul(p.SellThreshold))
}

// entrySignal returns the side to open, if any.
func (p StrategyParams) entrySignal(s domain.IndicatorSnapshot) (domain.Side, bool) {
	if p.bullish(s) {
		return domain.SideLong, true
	}
	if p.Mode.Bidirectional() && p.bearish(s) {
		return domain.SideShort, true
	}
	return domain.SideNone, false
}

// requiredBalance is the quote amount a spot entry must be able to cover.
func (p StrategyParams) requiredBalance(price decimal.Decimal) decimal.Decimal {
	return price.Mul(p.Quantity).Mul(one.Add(p.BalanceSafetyMargin))
}

// ratchet raises the dynamic stop as gain approaches the target. Breakeven
// is checked first; each step fires at most once per position.
func (p StrategyParams) ratchet(pos domain.PositionState, gain decimal.Decimal) (domain.PositionState, bool) {
	span := p.TakeProfit.Sub(one)
	halfway := one.Add(span.Mul(halfwayFactor))
	almost := one.Add(span.Mul(almostFactor))

	switch {
	case gain.GreaterThanOrEqual(halfway) && !pos.MovedToBreakeven:
		pos.DynamicStop = decimal.NewNullDecimal(one)
		pos.MovedToBreakeven = true
		return pos, true
	case gain.GreaterThanOrEqual(almost) && !pos.MovedToPartialLock:
		pos.DynamicStop = decimal.NewNullDecimal(one.Add(span.Mul(lockFactor)))
		pos.MovedToPartialLock = true
		return pos, true
	}
	return pos, false
}

// exitReason evaluates stop-loss, take-profit and, in spot mode, the bearish
// indicator exit, in that order.
func (p StrategyParams) exitReason(pos domain.PositionState, s domain.IndicatorSnapshot, gain decimal.Decimal) (domain.ExitReason, bool) {
	if gain.LessThanOrEqual(pos.EffectiveStop(p.StopLoss)) {
		return domain.ExitStopLoss, true
	}
	if gain.GreaterThanOrEqual(p.TakeProfit) {
		return domain.ExitTakeProfit, true
	}
	if p.Mode == domain.ModeSpot && pos.Side == domain.SideLong && p.bearish(s) {
		return domain.ExitSignal, true
	}
	return "", false
}
