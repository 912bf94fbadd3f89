package usecase

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"trend-trader/internal/domain"
)

// BalancePoint is the cumulative PnL after the Index-th trade.
type BalancePoint struct {
	Index     int             `json:"index"`
	Timestamp time.Time       `json:"timestamp"`
	Balance   decimal.Decimal `json:"balance"`
}

// TradeReport summarizes the closed trades of a symbol.
type TradeReport struct {
	TotalTrades      int                       `json:"totalTrades"`
	ProfitableTrades int                       `json:"profitableTrades"`
	LosingTrades     int                       `json:"losingTrades"`
	WinRate          decimal.Decimal           `json:"winRate"`
	TotalPnL         decimal.Decimal           `json:"totalPnL"`
	AvgPnL           decimal.Decimal           `json:"avgPnL"`
	AvgPnLPercent    decimal.Decimal           `json:"avgPnLPercent"`
	BiggestWin       decimal.Decimal           `json:"biggestWin"`
	BiggestLoss      decimal.Decimal           `json:"biggestLoss"`
	BestTrade        *domain.ClosedTradeRecord `json:"bestTrade"`
	WorstTrade       *domain.ClosedTradeRecord `json:"worstTrade"`
	BalanceHistory   []BalancePoint            `json:"balanceHistory"`
	LastUpdate       *time.Time                `json:"lastUpdate"`
}

// ReportService builds performance reports from the trade history.
type ReportService struct {
	history domain.TradeHistory
}

func NewReportService(history domain.TradeHistory) *ReportService {
	return &ReportService{history: history}
}

// Generate loads the trades of symbol and builds the report.
func (s *ReportService) Generate(ctx context.Context, symbol string) (TradeReport, error) {
	trades, err := s.history.ListClosedTrades(ctx, symbol)
	if err != nil {
		return TradeReport{}, fmt.Errorf("list closed trades: %w", err)
	}
	return BuildReport(trades), nil
}

// BuildReport aggregates trades in the order given. Best and worst trade are
// the first ones reaching the extreme PnL value.
func BuildReport(trades []domain.ClosedTradeRecord) TradeReport {
	r := TradeReport{
		TotalTrades:    len(trades),
		WinRate:        decimal.Zero,
		TotalPnL:       decimal.Zero,
		AvgPnL:         decimal.Zero,
		AvgPnLPercent:  decimal.Zero,
		BiggestWin:     decimal.Zero,
		BiggestLoss:    decimal.Zero,
		BalanceHistory: make([]BalancePoint, 0, len(trades)),
	}
	if len(trades) == 0 {
		return r
	}

	count := decimal.NewFromInt(int64(len(trades)))
	total, pctSum := decimal.Zero, decimal.Zero
	best, worst := 0, 0

	for i, t := range trades {
		if t.Result == domain.ResultProfit {
			r.ProfitableTrades++
		}
		total = total.Add(t.PnLValue)
		pctSum = pctSum.Add(t.PnLPercent)

		if t.PnLValue.GreaterThan(trades[best].PnLValue) {
			best = i
		}
		if t.PnLValue.LessThan(trades[worst].PnLValue) {
			worst = i
		}

		r.BalanceHistory = append(r.BalanceHistory, BalancePoint{
			Index:     i + 1,
			Timestamp: t.Timestamp,
			Balance:   total.Round(8),
		})
	}
	r.LosingTrades = r.TotalTrades - r.ProfitableTrades

	r.WinRate = decimal.NewFromInt(int64(r.ProfitableTrades)).Div(count).Mul(hundred).Round(2)
	r.TotalPnL = total.Round(8)
	r.AvgPnL = total.Div(count).Round(8)
	r.AvgPnLPercent = pctSum.Div(count).Round(4)
	r.BiggestWin = trades[best].PnLValue.Round(8)
	r.BiggestLoss = trades[worst].PnLValue.Round(8)

	bt, wt := trades[best], trades[worst]
	r.BestTrade, r.WorstTrade = &bt, &wt

	last := trades[len(trades)-1].Timestamp
	r.LastUpdate = &last
	return r
}

var hundred = decimal.NewFromInt(100)

// WriteText renders the report as a plain text summary.
func (r TradeReport) WriteText(w io.Writer, quote string) error {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line("===== PERFORMANCE REPORT =====")
	line("Total trades: %d", r.TotalTrades)
	line("Wins: %d | Losses: %d", r.ProfitableTrades, r.LosingTrades)
	line("Win rate: %s%%", r.WinRate.StringFixed(2))
	line("Total PnL: %s %s", r.TotalPnL.StringFixed(8), quote)
	line("Average PnL per trade: %s %s", r.AvgPnL.StringFixed(8), quote)
	line("Average PnL %% per trade: %s%%", r.AvgPnLPercent.StringFixed(4))
	line("Biggest win: +%s %s", r.BiggestWin.StringFixed(8), quote)
	line("Biggest loss: %s %s", r.BiggestLoss.StringFixed(8), quote)
	if r.BestTrade != nil {
		line("Best trade: %s", describeTrade(*r.BestTrade))
	}
	if r.WorstTrade != nil {
		line("Worst trade: %s", describeTrade(*r.WorstTrade))
	}
	line("Balance history (cumulative):")
	for _, p := range r.BalanceHistory {
		line("Trade #%d (%s): %s %s", p.Index, p.Timestamp.Format(time.RFC3339), p.Balance.StringFixed(8), quote)
	}
	line("===== END OF REPORT =====")

	_, err := io.WriteString(w, b.String())
	return err
}

func describeTrade(t domain.ClosedTradeRecord) string {
	return fmt.Sprintf("%s %s (%s%%) - entry %s exit %s (%s)",
		t.Side, t.Symbol, t.PnLPercent, t.EntryPrice, t.ExitPrice, t.Timestamp.Format(time.RFC3339))
}
