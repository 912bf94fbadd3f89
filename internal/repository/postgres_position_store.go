package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"trend-trader/internal/domain"
)

// PostgresPositionStore stores one position_state row per symbol.
// Decimals travel as text so numeric precision is kept end to end.
type PostgresPositionStore struct {
	pool *pgxpool.Pool
}

func NewPostgresPositionStore(pool *pgxpool.Pool) *PostgresPositionStore {
	return &PostgresPositionStore{pool: pool}
}

func (s *PostgresPositionStore) Load(ctx context.Context, symbol string) (domain.PositionState, error) {
	row := s.pool.QueryRow(ctx, `
		select symbol, is_open, side, entry_price::text, quantity::text, dynamic_stop::text,
			moved_to_breakeven, moved_to_partial_lock, last_trade_time, entry_order_id, opened_at
		from position_state
		where symbol = $1
	`, symbol)

	state, err := scanPositionState(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NewPositionState(symbol), nil
	}
	if err != nil {
		return domain.PositionState{}, fmt.Errorf("load position %s: %w", symbol, err)
	}
	return state, nil
}

func (s *PostgresPositionStore) Save(ctx context.Context, state domain.PositionState) error {
	_, err := s.pool.Exec(ctx, `
		insert into position_state(
			symbol, is_open, side, entry_price, quantity, dynamic_stop,
			moved_to_breakeven, moved_to_partial_lock, last_trade_time, entry_order_id, opened_at, updated_at
		) values ($1,$2,$3,$4::numeric,$5::numeric,$6::numeric,$7,$8,$9,$10,$11, now())
		on conflict (symbol) do update set
			is_open = excluded.is_open,
			side = excluded.side,
			entry_price = excluded.entry_price,
			quantity = excluded.quantity,
			dynamic_stop = excluded.dynamic_stop,
			moved_to_breakeven = excluded.moved_to_breakeven,
			moved_to_partial_lock = excluded.moved_to_partial_lock,
			last_trade_time = excluded.last_trade_time,
			entry_order_id = excluded.entry_order_id,
			opened_at = excluded.opened_at,
			updated_at = now()
	`,
		state.Symbol,
		state.IsOpen,
		string(state.Side),
		state.EntryPrice.String(),
		state.Quantity.String(),
		nullableDecimal(state.DynamicStop),
		state.MovedToBreakeven,
		state.MovedToPartialLock,
		nullableTime(state.LastTradeTime),
		state.EntryOrderID,
		nullableTime(state.OpenedAt),
	)
	if err != nil {
		return fmt.Errorf("save position %s: %w", state.Symbol, err)
	}
	return nil
}

// Helpers

type scanner interface {
	Scan(dest ...any) error
}

func scanPositionState(s scanner) (domain.PositionState, error) {
	var p domain.PositionState
	var side, entry, qty string
	var stop pgtype.Text
	var lastTrade, openedAt pgtype.Timestamptz

	if err := s.Scan(
		&p.Symbol,
		&p.IsOpen,
		&side,
		&entry,
		&qty,
		&stop,
		&p.MovedToBreakeven,
		&p.MovedToPartialLock,
		&lastTrade,
		&p.EntryOrderID,
		&openedAt,
	); err != nil {
		return domain.PositionState{}, err
	}

	var err error
	p.Side = domain.Side(side)
	if p.EntryPrice, err = decimal.NewFromString(entry); err != nil {
		return domain.PositionState{}, fmt.Errorf("entry_price: %w", err)
	}
	if p.Quantity, err = decimal.NewFromString(qty); err != nil {
		return domain.PositionState{}, fmt.Errorf("quantity: %w", err)
	}
	if stop.Valid {
		v, err := decimal.NewFromString(stop.String)
		if err != nil {
			return domain.PositionState{}, fmt.Errorf("dynamic_stop: %w", err)
		}
		p.DynamicStop = decimal.NewNullDecimal(v)
	}
	if lastTrade.Valid {
		p.LastTradeTime = lastTrade.Time.UTC()
	}
	if openedAt.Valid {
		p.OpenedAt = openedAt.Time.UTC()
	}
	return p, nil
}

func nullableDecimal(v decimal.NullDecimal) any {
	if !v.Valid {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{Valid: true, String: v.Decimal.String()}
}

func nullableTime(v time.Time) any {
	if v.IsZero() {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Valid: true, Time: v}
}

func nullableString(v string) any {
	if v == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{Valid: true, String: v}
}

// compile-time check
var _ domain.PositionStore = (*PostgresPositionStore)(nil)
