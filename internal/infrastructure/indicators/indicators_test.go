package indicators

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trend-trader/internal/domain"
)

func candlesFrom(closes ...float64) []domain.Candle {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]domain.Candle, len(closes))
	for i, c := range closes {
		v := decimal.NewFromFloat(c)
		out[i] = domain.Candle{
			OpenTime: t0.Add(time.Duration(i) * 15 * time.Minute),
			Open:     v, High: v, Low: v, Close: v,
			Volume: decimal.NewFromInt(1),
		}
	}
	return out
}

func TestSMA(t *testing.T) {
	assert.True(t, SMA(nil).IsZero())
	assert.True(t, SMA(candlesFrom(1, 2, 3, 4)).Equal(decimal.RequireFromString("2.5")))
}

func TestCalculateEMA(t *testing.T) {
	tests := []struct {
		name   string
		data   []float64
		period int
		want   []float64
	}{
		{name: "empty", data: nil, period: 3, want: []float64{}},
		{name: "single value", data: []float64{7}, period: 12, want: []float64{7}},
		{name: "period three", data: []float64{2, 4, 6}, period: 3, want: []float64{2, 3, 4.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateEMA(tt.data, tt.period)
			require.Len(t, got, len(tt.data))
			assert.InDeltaSlice(t, tt.want, got, 1e-12)
		})
	}
}

func TestCalculateEMA_SeededWithFirstValue(t *testing.T) {
	data := []float64{101.37, 99, 98, 120, 130}
	for _, p := range []int{1, 2, 12, 26} {
		got := CalculateEMA(data, p)
		assert.Len(t, got, len(data))
		assert.Equal(t, data[0], got[0])
	}
}

func TestCalculateRSI(t *testing.T) {
	t.Run("short series has no value", func(t *testing.T) {
		for n := 0; n <= 14; n++ {
			closes := make([]float64, n)
			for i := range closes {
				closes[i] = float64(100 + i)
			}
			_, ok := CalculateRSI(closes, 14)
			assert.False(t, ok, "len %d", n)
		}
	})

	t.Run("rising series saturates below 100", func(t *testing.T) {
		closes := make([]float64, 20)
		for i := range closes {
			closes[i] = float64(100 + i)
		}
		rsi, ok := CalculateRSI(closes, 14)
		require.True(t, ok)
		assert.InDelta(t, 99.0099, rsi, 1e-4)
	})

	t.Run("falling series is zero", func(t *testing.T) {
		closes := make([]float64, 15)
		for i := range closes {
			closes[i] = float64(200 - i)
		}
		rsi, ok := CalculateRSI(closes, 14)
		require.True(t, ok)
		assert.InDelta(t, 0, rsi, 1e-12)
	})

	t.Run("balanced moves are fifty", func(t *testing.T) {
		closes := []float64{10, 11, 10, 11, 10}
		rsi, ok := CalculateRSI(closes, 4)
		require.True(t, ok)
		assert.InDelta(t, 50, rsi, 1e-9)
	})

	t.Run("wilder smoothing after seed", func(t *testing.T) {
		// seed over period 2: gains (1), losses (1) -> 0.5/0.5
		// next delta +2: gain=(0.5*1+2)/2=1.25 loss=(0.5*1+0)/2=0.25 -> rs 5
		closes := []float64{10, 11, 10, 12}
		rsi, ok := CalculateRSI(closes, 2)
		require.True(t, ok)
		assert.InDelta(t, 100-100.0/6, rsi, 1e-9)
	})
}

func TestBuildSnapshot(t *testing.T) {
	t.Run("empty window", func(t *testing.T) {
		_, err := BuildSnapshot(nil, DefaultPeriods())
		assert.ErrorIs(t, err, ErrNotEnoughData)
	})

	t.Run("short window leaves rsi unset", func(t *testing.T) {
		snap, err := BuildSnapshot(candlesFrom(1, 2, 3), DefaultPeriods())
		require.NoError(t, err)
		assert.False(t, snap.RSI.Valid)
		assert.True(t, snap.Price.Equal(decimal.NewFromInt(3)))
		assert.True(t, snap.SMA.Equal(decimal.NewFromInt(2)))
	})

	t.Run("full window", func(t *testing.T) {
		closes := make([]float64, 21)
		for i := range closes {
			closes[i] = float64(100 + i)
		}
		snap, err := BuildSnapshot(candlesFrom(closes...), DefaultPeriods())
		require.NoError(t, err)
		assert.True(t, snap.RSI.Valid)
		assert.True(t, snap.EMAFast.GreaterThan(snap.EMASlow))
		assert.Equal(t, domain.TrendBullish, snap.Trend())
	})
}
