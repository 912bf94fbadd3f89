package indicators

import (
	"errors"

	"github.com/shopspring/decimal"

	"trend-trader/internal/domain"
)

// ErrNotEnoughData means the window cannot produce the moving averages.
var ErrNotEnoughData = errors.New("not enough candles for indicators")

// Periods groups the look-backs used to build a snapshot.
type Periods struct {
	EMAFast int
	EMASlow int
	RSI     int
}

// DefaultPeriods are EMA 12/26 and RSI 14.
func DefaultPeriods() Periods {
	return Periods{EMAFast: 12, EMASlow: 26, RSI: DefaultRSIPeriod}
}

// BuildSnapshot derives price, SMA, EMAs and RSI from a candle window.
// RSI is left unset when the window is shorter than its period plus one.
func BuildSnapshot(candles []domain.Candle, p Periods) (domain.IndicatorSnapshot, error) {
	if len(candles) == 0 {
		return domain.IndicatorSnapshot{}, ErrNotEnoughData
	}

	closes := domain.Closes(candles)
	fast, okFast := LastEMA(closes, p.EMAFast)
	slow, okSlow := LastEMA(closes, p.EMASlow)
	if !okFast || !okSlow {
		return domain.IndicatorSnapshot{}, ErrNotEnoughData
	}

	last := candles[len(candles)-1]
	snap := domain.IndicatorSnapshot{
		Price:      last.Close,
		SMA:        SMA(candles),
		EMAFast:    decimal.NewFromFloat(fast),
		EMASlow:    decimal.NewFromFloat(slow),
		CandleTime: last.OpenTime,
	}
	if rsi, ok := CalculateRSI(closes, p.RSI); ok {
		snap.RSI = decimal.NewNullDecimal(decimal.NewFromFloat(rsi))
	}
	return snap, nil
}
