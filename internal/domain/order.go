package domain

import "github.com/shopspring/decimal"

// OrderSide is the exchange order direction.
type OrderSide string

const (
	OrderBuy  OrderSide = "BUY"
	OrderSell OrderSide = "SELL"
)

// EntrySide returns the order side that opens a position of the given side.
func EntrySide(s Side) OrderSide {
	if s == SideShort {
		return OrderSell
	}
	return OrderBuy
}

// ExitSide returns the order side that closes a position of the given side.
func ExitSide(s Side) OrderSide {
	if s == SideShort {
		return OrderBuy
	}
	return OrderSell
}

// OrderRequest is a market order intent. PositionSide is only sent in
// futures hedge mode.
type OrderRequest struct {
	Symbol        string          `json:"symbol"`
	Side          OrderSide       `json:"side"`
	PositionSide  Side            `json:"positionSide,omitempty"`
	Quantity      decimal.Decimal `json:"quantity"`
	ClientOrderID string          `json:"clientOrderId,omitempty"`
}

// OrderResult is the confirmation returned after a fill.
type OrderResult struct {
	OrderID     string          `json:"orderId"`
	Status      string          `json:"status"`
	ExecutedQty decimal.Decimal `json:"executedQty"`
	AvgPrice    decimal.Decimal `json:"avgPrice"`
}
