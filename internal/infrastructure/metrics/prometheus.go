package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"trend-trader/internal/domain"
	"trend-trader/internal/usecase"
)

// Recorder implements usecase.Metrics using Prometheus.
type Recorder struct {
	cycles       *prometheus.CounterVec
	cycleLatency *prometheus.HistogramVec
	errorsTotal  *prometheus.CounterVec
	trades       *prometheus.CounterVec
	pnlPercent   *prometheus.HistogramVec
	positionOpen *prometheus.GaugeVec
	gain         *prometheus.GaugeVec
	dynamicStop  *prometheus.GaugeVec
	lastPrice    *prometheus.GaugeVec
}

// New registers the trader metrics on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		cycles: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trader_cycles_total",
				Help: "Strategy cycles by outcome",
			},
			[]string{"action"},
		),
		cycleLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trader_cycle_duration_seconds",
				Help:    "Duration of strategy cycles in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"action"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trader_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		trades: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trader_closed_trades_total",
				Help: "Closed trades by result and exit reason",
			},
			[]string{"symbol", "side", "result", "reason"},
		),
		pnlPercent: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trader_trade_pnl_percent",
				Help:    "Realized PnL percent per closed trade",
				Buckets: []float64{-5, -2, -1, -0.5, 0, 0.5, 1, 2, 3, 5},
			},
			[]string{"symbol"},
		),
		positionOpen: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trader_position_open",
				Help: "1 when a position is open, labelled by side",
			},
			[]string{"symbol", "side"},
		),
		gain: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trader_position_gain_ratio",
				Help: "Direction-normalized price ratio of the open position",
			},
			[]string{"symbol"},
		),
		dynamicStop: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trader_dynamic_stop_ratio",
				Help: "Current trailing stop ratio, 0 when unset",
			},
			[]string{"symbol"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trader_last_price",
				Help: "Last price seen by the strategy",
			},
			[]string{"symbol"},
		),
	}
}

func (r *Recorder) ObserveCycle(action usecase.CycleAction, d time.Duration) {
	r.cycles.WithLabelValues(string(action)).Inc()
	r.cycleLatency.WithLabelValues(string(action)).Observe(d.Seconds())
}

func (r *Recorder) SetPosition(state domain.PositionState, price float64) {
	sym := state.Symbol
	if price > 0 {
		r.lastPrice.WithLabelValues(sym).Set(price)
	}

	for _, side := range []domain.Side{domain.SideLong, domain.SideShort} {
		v := 0.0
		if state.IsOpen && state.Side == side {
			v = 1
		}
		r.positionOpen.WithLabelValues(sym, string(side)).Set(v)
	}

	gain := 0.0
	if state.IsOpen && price > 0 && state.EntryPrice.IsPositive() {
		entry := state.EntryPrice.InexactFloat64()
		gain = price / entry
		if state.Side == domain.SideShort {
			gain = entry / price
		}
	}
	r.gain.WithLabelValues(sym).Set(gain)

	stop := 0.0
	if state.DynamicStop.Valid {
		stop = state.DynamicStop.Decimal.InexactFloat64()
	}
	r.dynamicStop.WithLabelValues(sym).Set(stop)
}

func (r *Recorder) RecordTrade(t domain.ClosedTradeRecord) {
	r.trades.WithLabelValues(t.Symbol, string(t.Side), string(t.Result), string(t.ExitReason)).Inc()
	r.pnlPercent.WithLabelValues(t.Symbol).Observe(t.PnLPercent.InexactFloat64())
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

var _ usecase.Metrics = (*Recorder)(nil)
