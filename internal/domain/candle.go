package domain

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ErrInvalidCandle is returned when an exchange kline fails boundary checks.
var ErrInvalidCandle = errors.New("invalid candle")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// Candle is one kline bucket. Slices of candles are ordered oldest first.
type Candle struct {
	OpenTime  time.Time       `json:"openTime"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high" validate:"gtefield=Low"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close" validate:"gt=0"`
	Volume    decimal.Decimal `json:"volume" validate:"gte=0"`
	CloseTime time.Time       `json:"closeTime"`
}

// Validate rejects klines that cannot be priced.
func (c Candle) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCandle, err)
	}
	return nil
}

// Closes extracts close prices as float64 for the series indicators.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close.InexactFloat64()
	}
	return out
}

// IndicatorSnapshot is recomputed every cycle from a fresh candle window.
type IndicatorSnapshot struct {
	Price      decimal.Decimal     `json:"price"`
	SMA        decimal.Decimal     `json:"sma"`
	EMAFast    decimal.Decimal     `json:"emaFast"`
	EMASlow    decimal.Decimal     `json:"emaSlow"`
	RSI        decimal.NullDecimal `json:"rsi"`
	CandleTime time.Time           `json:"candleTime"`
}

// Trend classifies the moving-average crossover. It is used for logging only.
func (s IndicatorSnapshot) Trend() Trend {
	switch {
	case s.EMAFast.GreaterThan(s.EMASlow):
		return TrendBullish
	case s.EMAFast.LessThan(s.EMASlow):
		return TrendBearish
	default:
		return TrendNeutral
	}
}

type Trend string

const (
	TrendBullish Trend = "BULLISH"
	TrendBearish Trend = "BEARISH"
	TrendNeutral Trend = "NEUTRAL"
)
