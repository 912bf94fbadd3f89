package indicators

import (
	"github.com/shopspring/decimal"

	"trend-trader/internal/domain"
)

// SMA is the arithmetic mean of close prices over the whole window.
// An empty window yields zero; callers must guard before trusting it.
func SMA(candles []domain.Candle) decimal.Decimal {
	if len(candles) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, c := range candles {
		sum = sum.Add(c.Close)
	}
	return sum.Div(decimal.NewFromInt(int64(len(candles))))
}
