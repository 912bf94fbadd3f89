package usecase

import (
	"time"

	"trend-trader/internal/domain"
)

// Metrics receives cycle telemetry. Implementations must be safe for
// concurrent use.
type Metrics interface {
	ObserveCycle(action CycleAction, d time.Duration)
	SetPosition(state domain.PositionState, price float64)
	RecordTrade(trade domain.ClosedTradeRecord)
	RecordError(kind string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveCycle(CycleAction, time.Duration) {}
func (nopMetrics) SetPosition(domain.PositionState, float64) {}
func (nopMetrics) RecordTrade(domain.ClosedTradeRecord) {}
func (nopMetrics) RecordError(string) {}
