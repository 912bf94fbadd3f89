package repository

import (
	"context"
	"errors"

	"trend-trader/internal/domain"
)

// MultiRecorder writes each closed trade to every recorder. All recorders are
// attempted; their errors are joined.
type MultiRecorder []domain.TradeRecorder

func (m MultiRecorder) RecordClosedTrade(ctx context.Context, trade domain.ClosedTradeRecord) error {
	var errs []error
	for _, r := range m {
		if err := r.RecordClosedTrade(ctx, trade); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ domain.TradeRecorder = MultiRecorder(nil)
