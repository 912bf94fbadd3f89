package paper

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"trend-trader/internal/domain"
)

var (
	ErrNoPrice             = errors.New("no market price observed yet")
	ErrInsufficientBalance = errors.New("insufficient paper balance")
)

// Trader simulates fills at the last observed close. Market data comes from
// a real provider so the strategy sees live prices without placing orders.
type Trader struct {
	market     domain.MarketDataProvider
	quoteAsset string

	mu        sync.Mutex
	lastPrice map[string]decimal.Decimal
	balances  map[string]decimal.Decimal
	orders    []domain.OrderResult
}

// NewTrader creates a paper trader funded with quoteBalance of quoteAsset.
func NewTrader(market domain.MarketDataProvider, quoteAsset string, quoteBalance decimal.Decimal) *Trader {
	return &Trader{
		market:     market,
		quoteAsset: quoteAsset,
		lastPrice:  make(map[string]decimal.Decimal),
		balances:   map[string]decimal.Decimal{quoteAsset: quoteBalance},
	}
}

// FetchCandles delegates to the wrapped provider and remembers the last close.
func (t *Trader) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	candles, err := t.market.FetchCandles(ctx, symbol, interval, limit)
	if err != nil {
		return nil, err
	}
	if len(candles) > 0 {
		t.mu.Lock()
		t.lastPrice[symbol] = candles[len(candles)-1].Close
		t.mu.Unlock()
	}
	return candles, nil
}

// SubmitMarketOrder fills the whole quantity at the last observed close.
func (t *Trader) SubmitMarketOrder(_ context.Context, req domain.OrderRequest) (*domain.OrderResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	price, ok := t.lastPrice[req.Symbol]
	if !ok {
		return nil, fmt.Errorf("%w for %s", ErrNoPrice, req.Symbol)
	}
	if !req.Quantity.IsPositive() {
		return nil, fmt.Errorf("invalid order quantity %s", req.Quantity)
	}

	notional := price.Mul(req.Quantity)
	quote := t.balances[t.quoteAsset]
	switch req.Side {
	case domain.OrderBuy:
		if quote.LessThan(notional) {
			return nil, ErrInsufficientBalance
		}
		t.balances[t.quoteAsset] = quote.Sub(notional)
	case domain.OrderSell:
		t.balances[t.quoteAsset] = quote.Add(notional)
	default:
		return nil, fmt.Errorf("unknown order side %q", req.Side)
	}

	res := domain.OrderResult{
		OrderID:     uuid.NewString(),
		Status:      "FILLED",
		ExecutedQty: req.Quantity,
		AvgPrice:    price,
	}
	t.orders = append(t.orders, res)

	log.Info().
		Str("symbol", req.Symbol).
		Str("side", string(req.Side)).
		Str("qty", req.Quantity.String()).
		Str("price", price.String()).
		Str("orderId", res.OrderID).
		Msg("paper order filled")

	return &res, nil
}

// FetchAvailableBalance returns the simulated free balance.
func (t *Trader) FetchAvailableBalance(_ context.Context, asset string) (decimal.Decimal, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances[asset], nil
}

// Orders returns a copy of all simulated fills.
func (t *Trader) Orders() []domain.OrderResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.OrderResult, len(t.orders))
	copy(out, t.orders)
	return out
}

var _ domain.Exchange = (*Trader)(nil)
