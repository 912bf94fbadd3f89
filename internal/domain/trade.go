package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TradeResult classifies a closed trade.
type TradeResult string

const (
	ResultProfit TradeResult = "PROFIT"
	ResultLoss   TradeResult = "LOSS"
)

// ExitReason records which rule closed the position.
type ExitReason string

const (
	ExitStopLoss   ExitReason = "STOP_LOSS"
	ExitTakeProfit ExitReason = "TAKE_PROFIT"
	ExitSignal     ExitReason = "SIGNAL"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// ClosedTradeRecord is the immutable audit entry for one round trip.
type ClosedTradeRecord struct {
	ID         string          `json:"id"`
	Timestamp  time.Time       `json:"timestamp"`
	Symbol     string          `json:"symbol"`
	Side       Side            `json:"side"`
	EntryPrice decimal.Decimal `json:"entryPrice"`
	ExitPrice  decimal.Decimal `json:"exitPrice"`
	Quantity   decimal.Decimal `json:"quantity"`
	PnLPercent decimal.Decimal `json:"pnlPercent"`
	PnLValue   decimal.Decimal `json:"pnlValue"`
	Result     TradeResult     `json:"result"`
	ExitReason ExitReason      `json:"exitReason"`
	OrderID    string          `json:"orderId,omitempty"`
}

// NewClosedTradeRecord shapes the record for a position closed at exitPrice.
// PnL is signed so that LONG gains on a rise and SHORT gains on a fall; a
// percentage that rounds to zero counts as a loss. The percentage is the
// price ratio minus one: exit/entry for LONG, entry/exit for SHORT.
func NewClosedTradeRecord(pos PositionState, exitPrice, qty decimal.Decimal, reason ExitReason, orderID string, now time.Time) ClosedTradeRecord {
	diff := exitPrice.Sub(pos.EntryPrice)
	pct := decimal.Zero
	if pos.Side == SideShort {
		diff = diff.Neg()
		if exitPrice.IsPositive() {
			pct = pos.EntryPrice.Div(exitPrice).Sub(one).Mul(hundred)
		}
	} else if pos.EntryPrice.IsPositive() {
		pct = exitPrice.Div(pos.EntryPrice).Sub(one).Mul(hundred)
	}
	pct = pct.Round(2)
	value := diff.Mul(qty).Round(6)

	result := ResultLoss
	if pct.IsPositive() {
		result = ResultProfit
	}

	return ClosedTradeRecord{
		ID:         uuid.NewString(),
		Timestamp:  storeTime(now),
		Symbol:     pos.Symbol,
		Side:       pos.Side,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  exitPrice,
		Quantity:   qty,
		PnLPercent: pct,
		PnLValue:   value,
		Result:     result,
		ExitReason: reason,
		OrderID:    orderID,
	}
}
