package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	json "github.com/goccy/go-json"

	"trend-trader/internal/domain"
)

// FilePositionStore keeps the position state in a single JSON document.
type FilePositionStore struct {
	path string
	mu   sync.Mutex
}

func NewFilePositionStore(path string) *FilePositionStore {
	return &FilePositionStore{path: path}
}

func (s *FilePositionStore) Load(_ context.Context, symbol string) (domain.PositionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := readIfExists(s.path)
	if err != nil {
		return domain.PositionState{}, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(b) == 0 {
		return domain.NewPositionState(symbol), nil
	}

	var state domain.PositionState
	if err := json.Unmarshal(b, &state); err != nil {
		return domain.PositionState{}, fmt.Errorf("decode %s: %w", s.path, err)
	}
	if state.Symbol == "" {
		state.Symbol = symbol
	}
	return state, nil
}

func (s *FilePositionStore) Save(_ context.Context, state domain.PositionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode position state: %w", err)
	}
	return writeAtomic(s.path, b)
}

// FileTradeRepository appends closed trades to a JSON array on disk.
type FileTradeRepository struct {
	path string
	mu   sync.Mutex
}

func NewFileTradeRepository(path string) *FileTradeRepository {
	return &FileTradeRepository{path: path}
}

func (r *FileTradeRepository) RecordClosedTrade(_ context.Context, trade domain.ClosedTradeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	trades, err := r.readAll()
	if err != nil {
		return err
	}
	trades = append(trades, trade)

	b, err := json.MarshalIndent(trades, "", "  ")
	if err != nil {
		return fmt.Errorf("encode trades: %w", err)
	}
	return writeAtomic(r.path, b)
}

// ListClosedTrades returns the trades of symbol, or all trades when symbol
// is empty.
func (r *FileTradeRepository) ListClosedTrades(_ context.Context, symbol string) ([]domain.ClosedTradeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	trades, err := r.readAll()
	if err != nil {
		return nil, err
	}
	return filterBySymbol(trades, symbol), nil
}

func (r *FileTradeRepository) readAll() ([]domain.ClosedTradeRecord, error) {
	b, err := readIfExists(r.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.path, err)
	}
	trades := []domain.ClosedTradeRecord{}
	if len(b) == 0 {
		return trades, nil
	}
	if err := json.Unmarshal(b, &trades); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.path, err)
	}
	return trades, nil
}

func filterBySymbol(trades []domain.ClosedTradeRecord, symbol string) []domain.ClosedTradeRecord {
	if symbol == "" {
		return trades
	}
	out := make([]domain.ClosedTradeRecord, 0, len(trades))
	for _, t := range trades {
		if t.Symbol == symbol {
			out = append(out, t)
		}
	}
	return out
}

// readIfExists returns nil content for a missing or blank file.
func readIfExists(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return bytes.TrimSpace(b), nil
}

// writeAtomic replaces path through a synced temp file in the same directory.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

var (
	_ domain.PositionStore   = (*FilePositionStore)(nil)
	_ domain.TradeRepository = (*FileTradeRepository)(nil)
)
