package repository

import (
	"context"
	"fmt"
	"sync"

	"trend-trader/internal/domain"
)

// InMemoryTradeRepository stores closed trades in memory
type InMemoryTradeRepository struct {
	mu      sync.RWMutex
	ids     map[string]struct{}
	history []domain.ClosedTradeRecord
}

// NewInMemoryTradeRepository creates a new in-memory trade repository
func NewInMemoryTradeRepository() *InMemoryTradeRepository {
	return &InMemoryTradeRepository{
		ids:     make(map[string]struct{}),
		history: make([]domain.ClosedTradeRecord, 0),
	}
}

// RecordClosedTrade appends a trade; IDs must be unique
func (r *InMemoryTradeRepository) RecordClosedTrade(_ context.Context, trade domain.ClosedTradeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if trade.ID != "" {
		if _, exists := r.ids[trade.ID]; exists {
			return fmt.Errorf("trade with ID %s already exists", trade.ID)
		}
		r.ids[trade.ID] = struct{}{}
	}
	r.history = append(r.history, trade)
	return nil
}

// ListClosedTrades returns the history of symbol in insertion order
func (r *InMemoryTradeRepository) ListClosedTrades(_ context.Context, symbol string) ([]domain.ClosedTradeRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.ClosedTradeRecord, len(r.history))
	copy(result, r.history)
	return filterBySymbol(result, symbol), nil
}

var _ domain.TradeRepository = (*InMemoryTradeRepository)(nil)
