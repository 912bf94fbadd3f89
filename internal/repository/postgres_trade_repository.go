package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"trend-trader/internal/domain"
)

// PostgresTradeRepository appends to closed_trades. seq keeps insertion order.
type PostgresTradeRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresTradeRepository(pool *pgxpool.Pool) *PostgresTradeRepository {
	return &PostgresTradeRepository{pool: pool}
}

func (r *PostgresTradeRepository) RecordClosedTrade(ctx context.Context, t domain.ClosedTradeRecord) error {
	_, err := r.pool.Exec(ctx, `
		insert into closed_trades(
			id, ts, symbol, side, entry_price, exit_price, quantity,
			pnl_percent, pnl_value, result, exit_reason, order_id
		) values ($1,$2,$3,$4,$5::numeric,$6::numeric,$7::numeric,$8::numeric,$9::numeric,$10,$11,$12)
	`,
		t.ID,
		t.Timestamp,
		t.Symbol,
		string(t.Side),
		t.EntryPrice.String(),
		t.ExitPrice.String(),
		t.Quantity.String(),
		t.PnLPercent.String(),
		t.PnLValue.String(),
		string(t.Result),
		string(t.ExitReason),
		nullableString(t.OrderID),
	)
	if err != nil {
		return fmt.Errorf("insert closed trade %s: %w", t.ID, err)
	}
	return nil
}

func (r *PostgresTradeRepository) ListClosedTrades(ctx context.Context, symbol string) ([]domain.ClosedTradeRecord, error) {
	rows, err := r.pool.Query(ctx, `
		select id, ts, symbol, side, entry_price::text, exit_price::text, quantity::text,
			pnl_percent::text, pnl_value::text, result, exit_reason, order_id
		from closed_trades
		where $1::text = '' or symbol = $1
		order by seq
	`, symbol)
	if err != nil {
		return nil, fmt.Errorf("query closed trades: %w", err)
	}
	defer rows.Close()

	trades := make([]domain.ClosedTradeRecord, 0)
	for rows.Next() {
		t, err := scanClosedTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan closed trade: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func scanClosedTrade(s scanner) (domain.ClosedTradeRecord, error) {
	var t domain.ClosedTradeRecord
	var side, result, reason string
	var entry, exit, qty, pct, value string
	var orderID pgtype.Text

	if err := s.Scan(
		&t.ID,
		&t.Timestamp,
		&t.Symbol,
		&side,
		&entry,
		&exit,
		&qty,
		&pct,
		&value,
		&result,
		&reason,
		&orderID,
	); err != nil {
		return t, err
	}

	t.Timestamp = t.Timestamp.UTC()
	t.Side = domain.Side(side)
	t.Result = domain.TradeResult(result)
	t.ExitReason = domain.ExitReason(reason)
	if orderID.Valid {
		t.OrderID = orderID.String
	}

	fields := []struct {
		dst *decimal.Decimal
		raw string
	}{
		{&t.EntryPrice, entry},
		{&t.ExitPrice, exit},
		{&t.Quantity, qty},
		{&t.PnLPercent, pct},
		{&t.PnLValue, value},
	}
	for _, f := range fields {
		v, err := decimal.NewFromString(f.raw)
		if err != nil {
			return t, err
		}
		*f.dst = v
	}
	return t, nil
}

// compile-time check
var _ domain.TradeRepository = (*PostgresTradeRepository)(nil)
