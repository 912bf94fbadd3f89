package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// MarketDataProvider fetches the latest klines, oldest first.
type MarketDataProvider interface {
	FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
}

// OrderExecutor submits market orders and returns the fill confirmation.
type OrderExecutor interface {
	SubmitMarketOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)
}

// BalanceProvider returns the free balance of an asset.
type BalanceProvider interface {
	FetchAvailableBalance(ctx context.Context, asset string) (decimal.Decimal, error)
}

// Exchange is the full collaborator surface a live or paper trader offers.
type Exchange interface {
	MarketDataProvider
	OrderExecutor
	BalanceProvider
}

// PositionStore persists the single PositionState per symbol.
// Load returns a zeroed state when nothing has been stored yet.
type PositionStore interface {
	Load(ctx context.Context, symbol string) (PositionState, error)
	Save(ctx context.Context, state PositionState) error
}

// TradeRecorder receives closed trades. Implementations append only.
type TradeRecorder interface {
	RecordClosedTrade(ctx context.Context, trade ClosedTradeRecord) error
}

// TradeHistory reads back recorded trades in insertion order.
type TradeHistory interface {
	ListClosedTrades(ctx context.Context, symbol string) ([]ClosedTradeRecord, error)
}

// TradeRepository is a recorder that can also be read back.
type TradeRepository interface {
	TradeRecorder
	TradeHistory
}

// DeviceTokenRepository stores push notification targets.
type DeviceTokenRepository interface {
	RegisterToken(ctx context.Context, token, platform string, at time.Time) error
	UnregisterToken(ctx context.Context, token string) error
	GetAllTokens(ctx context.Context) ([]string, error)
}

// Notification is a human-facing message about the trading loop.
type Notification struct {
	Kind  string            `json:"kind"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Notifier delivers notifications to one channel.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
