package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidPositionState is wrapped by every PositionState.Validate failure.
var ErrInvalidPositionState = errors.New("invalid position state")

// Side is the direction of an open position.
type Side string

const (
	SideNone  Side = ""
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Mode selects the rule set applied by the strategy engine.
type Mode string

const (
	// ModeSpot is LONG only, checks the quote balance before entries and
	// may exit on a bearish indicator reading.
	ModeSpot Mode = "spot"
	// ModeFutures trades both directions using hedge-mode position sides.
	ModeFutures Mode = "futures"
)

// Bidirectional reports whether SHORT positions are allowed.
func (m Mode) Bidirectional() bool {
	return m == ModeFutures
}

// PositionState is the persisted record of the single position per symbol.
type PositionState struct {
	Symbol             string              `json:"symbol"`
	IsOpen             bool                `json:"isOpen"`
	Side               Side                `json:"side"`
	EntryPrice         decimal.Decimal     `json:"entryPrice"`
	Quantity           decimal.Decimal     `json:"quantity"`
	DynamicStop        decimal.NullDecimal `json:"dynamicStop"`
	MovedToBreakeven   bool                `json:"movedToBreakeven"`
	MovedToPartialLock bool                `json:"movedToPartialLock"`
	LastTradeTime      time.Time           `json:"lastTradeTime"`
	EntryOrderID       string              `json:"entryOrderId,omitempty"`
	OpenedAt           time.Time           `json:"openedAt"`
}

// NewPositionState returns the zeroed FLAT state for a symbol.
func NewPositionState(symbol string) PositionState {
	return PositionState{Symbol: symbol}
}

// Validate checks the structural invariants of the record.
func (p PositionState) Validate(mode Mode) error {
	if p.MovedToPartialLock && !p.MovedToBreakeven {
		return fmt.Errorf("%w: partial lock set before breakeven", ErrInvalidPositionState)
	}
	if !p.IsOpen {
		if !p.EntryPrice.IsZero() || p.Side != SideNone || p.DynamicStop.Valid ||
			p.MovedToBreakeven || p.MovedToPartialLock {
			return fmt.Errorf("%w: closed position carries open fields", ErrInvalidPositionState)
		}
		return nil
	}
	switch p.Side {
	case SideLong:
	case SideShort:
		if !mode.Bidirectional() {
			return fmt.Errorf("%w: SHORT position in %s mode", ErrInvalidPositionState, mode)
		}
	default:
		return fmt.Errorf("%w: open position without side", ErrInvalidPositionState)
	}
	if !p.EntryPrice.IsPositive() {
		return fmt.Errorf("%w: open position without entry price", ErrInvalidPositionState)
	}
	return nil
}

// InCooldown reports whether now falls inside the cooldown window that
// follows the last open or close.
func (p PositionState) InCooldown(now time.Time, cooldown time.Duration) bool {
	if p.LastTradeTime.IsZero() {
		return false
	}
	return now.Sub(p.LastTradeTime) < cooldown
}

// Gain is the direction-normalized price ratio; above one is favorable.
func (p PositionState) Gain(price decimal.Decimal) decimal.Decimal {
	if p.Side == SideShort {
		return p.EntryPrice.Div(price)
	}
	return price.Div(p.EntryPrice)
}

// EffectiveStop returns the dynamic stop when set, else the static ratio.
func (p PositionState) EffectiveStop(static decimal.Decimal) decimal.Decimal {
	if p.DynamicStop.Valid {
		return p.DynamicStop.Decimal
	}
	return static
}

// storeTime drops sub-microsecond precision so timestamps survive a
// round trip through timestamptz unchanged.
func storeTime(t time.Time) time.Time {
	return t.Truncate(time.Microsecond)
}

// Opened returns the state after a confirmed entry fill.
func (p PositionState) Opened(side Side, price, qty decimal.Decimal, orderID string, now time.Time) PositionState {
	now = storeTime(now)
	return PositionState{
		Symbol:        p.Symbol,
		IsOpen:        true,
		Side:          side,
		EntryPrice:    price,
		Quantity:      qty,
		LastTradeTime: now,
		EntryOrderID:  orderID,
		OpenedAt:      now,
	}
}

// Closed returns the zeroed state after a confirmed closing fill.
func (p PositionState) Closed(now time.Time) PositionState {
	return PositionState{
		Symbol:        p.Symbol,
		LastTradeTime: storeTime(now),
	}
}
