package usecase

import (
	"fmt"

	"github.com/shopspring/decimal"

	"trend-trader/internal/config"
	"trend-trader/internal/domain"
	"trend-trader/internal/infrastructure/indicators"
)

// StrategyParamsFromConfig converts the loaded strategy section into engine
// parameters.
func StrategyParamsFromConfig(c config.StrategyConfig) (StrategyParams, error) {
	qty, err := decimal.NewFromString(c.Quantity)
	if err != nil {
		return StrategyParams{}, fmt.Errorf("%w: quantity %q: %v", ErrInvalidParams, c.Quantity, err)
	}
	upper, lower := c.RSIGuards()

	p := StrategyParams{
		Mode:                domain.Mode(c.Mode),
		Symbol:              c.Symbol,
		QuoteAsset:          c.QuoteAsset,
		Quantity:            qty,
		Interval:            c.Interval,
		Lookback:            c.Lookback,
		BuyThreshold:        decimal.NewFromFloat(c.BuyThreshold),
		SellThreshold:       decimal.NewFromFloat(c.SellThreshold),
		StopLoss:            decimal.NewFromFloat(c.StopLoss),
		TakeProfit:          decimal.NewFromFloat(c.TakeProfit),
		Cooldown:            c.Cooldown,
		CooldownEntriesOnly: c.CooldownEntriesOnly,
		RSIUpper:            decimal.NewFromFloat(upper),
		RSILower:            decimal.NewFromFloat(lower),
		BalanceSafetyMargin: decimal.NewFromFloat(c.BalanceSafetyMargin),
		Periods: indicators.Periods{
			EMAFast: c.EMAFast,
			EMASlow: c.EMASlow,
			RSI:     c.RSIPeriod,
		},
	}
	if err := p.Validate(); err != nil {
		return StrategyParams{}, err
	}
	return p, nil
}
