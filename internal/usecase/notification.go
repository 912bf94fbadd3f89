package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"trend-trader/internal/domain"
)

// NotificationService fans cycle events out to the configured notifiers and
// de-duplicates trend log lines. The trend it tracks is never read by the
// strategy.
type NotificationService struct {
	symbol    string
	notifiers []domain.Notifier

	mu        sync.Mutex
	lastTrend domain.Trend
}

func NewNotificationService(symbol string, notifiers ...domain.Notifier) *NotificationService {
	return &NotificationService{symbol: symbol, notifiers: notifiers}
}

// ObserveTrend logs the crossover trend when it differs from the last one
// seen and reports whether it changed.
func (s *NotificationService) ObserveTrend(snap domain.IndicatorSnapshot) bool {
	trend := snap.Trend()

	s.mu.Lock()
	changed := trend != s.lastTrend
	s.lastTrend = trend
	s.mu.Unlock()

	if changed {
		ev := log.Info().
			Str("symbol", s.symbol).
			Str("trend", string(trend)).
			Str("price", snap.Price.String()).
			Str("sma", snap.SMA.StringFixed(2)).
			Str("emaFast", snap.EMAFast.StringFixed(2)).
			Str("emaSlow", snap.EMASlow.StringFixed(2))
		if snap.RSI.Valid {
			ev = ev.Str("rsi", snap.RSI.Decimal.StringFixed(2))
		}
		ev.Msg("trend changed")
	}
	return changed
}

// LastTrend returns the most recently observed trend.
func (s *NotificationService) LastTrend() domain.Trend {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTrend
}

// CycleCompleted notifies about opened and closed positions.
func (s *NotificationService) CycleCompleted(ctx context.Context, res CycleResult) {
	switch res.Action {
	case ActionOpened:
		st := res.State
		emoji := "🟢"
		if st.Side == domain.SideShort {
			emoji = "🔴"
		}
		s.publish(ctx, domain.Notification{
			Kind:  string(ActionOpened),
			Title: fmt.Sprintf("%s %s %s opened", emoji, st.Symbol, st.Side),
			Body:  fmt.Sprintf("Entry %s | Qty %s", st.EntryPrice, st.Quantity),
			Data: map[string]string{
				"symbol": st.Symbol,
				"side":   string(st.Side),
				"price":  st.EntryPrice.String(),
			},
		})
	case ActionClosed:
		if res.Trade == nil {
			return
		}
		tr := res.Trade
		emoji := "✅"
		if tr.Result == domain.ResultLoss {
			emoji = "❌"
		}
		s.publish(ctx, domain.Notification{
			Kind:  string(ActionClosed),
			Title: fmt.Sprintf("%s %s %s closed (%s)", emoji, tr.Symbol, tr.Side, tr.ExitReason),
			Body: fmt.Sprintf("Entry %s | Exit %s | PnL %s%% (%s)",
				tr.EntryPrice, tr.ExitPrice, tr.PnLPercent.StringFixed(2), tr.PnLValue),
			Data: map[string]string{
				"symbol":     tr.Symbol,
				"side":       string(tr.Side),
				"result":     string(tr.Result),
				"pnlPercent": tr.PnLPercent.String(),
			},
		})
	}
}

// PersistenceFailed raises an alert when state could not be committed.
func (s *NotificationService) PersistenceFailed(ctx context.Context, err error) {
	s.publish(ctx, domain.Notification{
		Kind:  "PERSIST_FAILED",
		Title: fmt.Sprintf("⚠️ %s state not saved", s.symbol),
		Body:  err.Error(),
	})
}

func (s *NotificationService) publish(ctx context.Context, n domain.Notification) {
	for _, notifier := range s.notifiers {
		if err := notifier.Notify(ctx, n); err != nil {
			log.Warn().Err(err).Str("kind", n.Kind).Msg("notification failed")
		}
	}
}
