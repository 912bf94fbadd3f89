package main

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"trend-trader/internal/domain"
	"trend-trader/internal/usecase"
)

func TestNewSummaryFile(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	pos := domain.NewPositionState("BTCUSDT").Opened(domain.SideLong, decimal.NewFromInt(100), decimal.NewFromInt(1), "1", now)
	win := domain.NewClosedTradeRecord(pos, decimal.NewFromInt(103), decimal.NewFromInt(1), domain.ExitTakeProfit, "2", now)
	loss := domain.NewClosedTradeRecord(pos, decimal.NewFromInt(99), decimal.NewFromInt(1), domain.ExitStopLoss, "3", now)

	s := newSummaryFile("BTCUSDT", usecase.BuildReport([]domain.ClosedTradeRecord{win, loss}), now)

	assert.Equal(t, now, s.GeneratedAt)
	assert.Equal(t, 2, s.Summary.TotalTrades)
	assert.Equal(t, "50.00", s.Summary.WinRate)
	assert.Equal(t, "2", s.Summary.TotalPnL)
	assert.Equal(t, win.ID, s.BestTrade.ID)
	assert.Equal(t, loss.ID, s.WorstTrade.ID)
	assert.Len(t, s.BalanceHistory, 2)
}
