package repository

import (
	"context"
	"sync"

	"trend-trader/internal/domain"
)

// InMemoryPositionStore keeps one PositionState per symbol.
type InMemoryPositionStore struct {
	states map[string]domain.PositionState
	mu     sync.RWMutex
}

func NewInMemoryPositionStore() *InMemoryPositionStore {
	return &InMemoryPositionStore{
		states: make(map[string]domain.PositionState),
	}
}

func (s *InMemoryPositionStore) Load(_ context.Context, symbol string) (domain.PositionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[symbol]
	if !ok {
		return domain.NewPositionState(symbol), nil
	}
	return state, nil
}

func (s *InMemoryPositionStore) Save(_ context.Context, state domain.PositionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Whole-record overwrite.
	s.states[state.Symbol] = state
	return nil
}

var _ domain.PositionStore = (*InMemoryPositionStore)(nil)
