package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trend-trader/internal/domain"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertSameState(t *testing.T, want, got domain.PositionState) {
	t.Helper()
	assert.Equal(t, want.Symbol, got.Symbol)
	assert.Equal(t, want.IsOpen, got.IsOpen)
	assert.Equal(t, want.Side, got.Side)
	assert.True(t, want.EntryPrice.Equal(got.EntryPrice), "entry price %s != %s", want.EntryPrice, got.EntryPrice)
	assert.True(t, want.Quantity.Equal(got.Quantity), "quantity %s != %s", want.Quantity, got.Quantity)
	assert.Equal(t, want.DynamicStop.Valid, got.DynamicStop.Valid)
	if want.DynamicStop.Valid {
		assert.True(t, want.DynamicStop.Decimal.Equal(got.DynamicStop.Decimal))
	}
	assert.Equal(t, want.MovedToBreakeven, got.MovedToBreakeven)
	assert.Equal(t, want.MovedToPartialLock, got.MovedToPartialLock)
	assert.True(t, want.LastTradeTime.Equal(got.LastTradeTime), "last trade %s != %s", want.LastTradeTime, got.LastTradeTime)
	assert.Equal(t, want.EntryOrderID, got.EntryOrderID)
	assert.True(t, want.OpenedAt.Equal(got.OpenedAt))
}

func sampleStates() map[string]domain.PositionState {
	open := domain.NewPositionState("BTCUSDT").Opened(domain.SideLong, d("64123.45"), d("0.00015"), "8124", t0)
	locked := open
	locked.DynamicStop = decimal.NewNullDecimal(d("1.009"))
	locked.MovedToBreakeven = true
	locked.MovedToPartialLock = true

	return map[string]domain.PositionState{
		"fresh":        domain.NewPositionState("BTCUSDT"),
		"closed":       domain.NewPositionState("BTCUSDT").Closed(t0),
		"open no stop": open,
		"open locked":  locked,
	}
}

func TestPositionStores_RoundTrip(t *testing.T) {
	stores := map[string]func(t *testing.T) domain.PositionStore{
		"file": func(t *testing.T) domain.PositionStore {
			return NewFilePositionStore(filepath.Join(t.TempDir(), "state.json"))
		},
		"memory": func(*testing.T) domain.PositionStore {
			return NewInMemoryPositionStore()
		},
	}

	for storeName, newStore := range stores {
		for name, state := range sampleStates() {
			t.Run(storeName+"/"+name, func(t *testing.T) {
				ctx := context.Background()
				store := newStore(t)

				require.NoError(t, store.Save(ctx, state))
				got, err := store.Load(ctx, "BTCUSDT")
				require.NoError(t, err)

				assertSameState(t, state, got)
			})
		}
	}
}

func TestFilePositionStore_MissingOrBlankFile(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	got, err := NewFilePositionStore(filepath.Join(dir, "missing.json")).Load(ctx, "ETHUSDT")
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", got.Symbol)
	assert.False(t, got.IsOpen)

	blank := filepath.Join(dir, "blank.json")
	require.NoError(t, os.WriteFile(blank, []byte("  \n"), 0o644))
	got, err = NewFilePositionStore(blank).Load(ctx, "ETHUSDT")
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", got.Symbol)
}

func TestFilePositionStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFilePositionStore(path).Load(context.Background(), "BTCUSDT")
	assert.Error(t, err)
}

func TestFilePositionStore_OverwritesWholeRecord(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	store := NewFilePositionStore(path)

	states := sampleStates()
	require.NoError(t, store.Save(ctx, states["open locked"]))
	require.NoError(t, store.Save(ctx, states["closed"]))

	got, err := store.Load(ctx, "BTCUSDT")
	require.NoError(t, err)
	assertSameState(t, states["closed"], got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

func closedTrade(id, symbol string) domain.ClosedTradeRecord {
	pos := domain.NewPositionState(symbol).Opened(domain.SideLong, d("100"), d("0.5"), "1", t0)
	tr := domain.NewClosedTradeRecord(pos, d("103"), d("0.5"), domain.ExitTakeProfit, "2", t0.Add(time.Hour))
	tr.ID = id
	return tr
}

func TestTradeRepositories(t *testing.T) {
	repos := map[string]func(t *testing.T) domain.TradeRepository{
		"file": func(t *testing.T) domain.TradeRepository {
			return NewFileTradeRepository(filepath.Join(t.TempDir(), "trades.json"))
		},
		"memory": func(*testing.T) domain.TradeRepository {
			return NewInMemoryTradeRepository()
		},
	}

	for name, newRepo := range repos {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := newRepo(t)

			empty, err := repo.ListClosedTrades(ctx, "BTCUSDT")
			require.NoError(t, err)
			assert.Empty(t, empty)

			require.NoError(t, repo.RecordClosedTrade(ctx, closedTrade("a", "BTCUSDT")))
			require.NoError(t, repo.RecordClosedTrade(ctx, closedTrade("b", "ETHUSDT")))
			require.NoError(t, repo.RecordClosedTrade(ctx, closedTrade("c", "BTCUSDT")))

			btc, err := repo.ListClosedTrades(ctx, "BTCUSDT")
			require.NoError(t, err)
			require.Len(t, btc, 2)
			assert.Equal(t, "a", btc[0].ID)
			assert.Equal(t, "c", btc[1].ID)
			assert.True(t, btc[0].PnLPercent.Equal(d("3")))
			assert.True(t, btc[0].PnLValue.Equal(d("1.5")))
			assert.Equal(t, domain.ResultProfit, btc[0].Result)
			assert.Equal(t, domain.ExitTakeProfit, btc[0].ExitReason)
			assert.True(t, btc[0].Timestamp.Equal(t0.Add(time.Hour)))

			all, err := repo.ListClosedTrades(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 3)
		})
	}
}

func TestInMemoryTradeRepository_RejectsDuplicateID(t *testing.T) {
	repo := NewInMemoryTradeRepository()
	ctx := context.Background()

	require.NoError(t, repo.RecordClosedTrade(ctx, closedTrade("a", "BTCUSDT")))
	assert.Error(t, repo.RecordClosedTrade(ctx, closedTrade("a", "BTCUSDT")))
}

type failingRecorder struct{ err error }

func (f failingRecorder) RecordClosedTrade(context.Context, domain.ClosedTradeRecord) error {
	return f.err
}

func TestMultiRecorder(t *testing.T) {
	ctx := context.Background()
	mem := NewInMemoryTradeRepository()
	boom := errors.New("kafka unavailable")

	err := MultiRecorder{failingRecorder{boom}, mem}.RecordClosedTrade(ctx, closedTrade("a", "BTCUSDT"))

	assert.ErrorIs(t, err, boom)
	got, _ := mem.ListClosedTrades(ctx, "BTCUSDT")
	assert.Len(t, got, 1, "later recorders still run")

	assert.NoError(t, MultiRecorder{mem}.RecordClosedTrade(ctx, closedTrade("b", "BTCUSDT")))
}

func TestTokenRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewTokenRepository()

	require.NoError(t, repo.RegisterToken(ctx, "tok-1", "android", t0))
	require.NoError(t, repo.RegisterToken(ctx, "tok-2", "ios", t0))
	require.NoError(t, repo.RegisterToken(ctx, "tok-1", "ios", t0.Add(time.Minute)))
	assert.Equal(t, 2, repo.GetTokenCount())

	require.NoError(t, repo.UnregisterToken(ctx, "tok-2"))
	tokens, err := repo.GetAllTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"tok-1"}, tokens)
}
