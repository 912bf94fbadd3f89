package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates the tables used by the postgres storage backend.
// Statements are idempotent, so it runs on every start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`create table if not exists position_state (
			symbol text primary key,
			is_open boolean not null default false,
			side text not null default '',
			entry_price numeric not null default 0,
			quantity numeric not null default 0,
			dynamic_stop numeric null,
			moved_to_breakeven boolean not null default false,
			moved_to_partial_lock boolean not null default false,
			last_trade_time timestamptz null,
			entry_order_id text not null default '',
			opened_at timestamptz null,
			updated_at timestamptz not null default now(),
			check (moved_to_breakeven or not moved_to_partial_lock)
		);`,
		`create table if not exists closed_trades (
			seq bigserial primary key,
			id text not null unique,
			ts timestamptz not null,
			symbol text not null,
			side text not null,
			entry_price numeric not null,
			exit_price numeric not null,
			quantity numeric not null,
			pnl_percent numeric not null,
			pnl_value numeric not null,
			result text not null,
			exit_reason text not null,
			order_id text null
		);`,
		`create index if not exists closed_trades_symbol_seq_idx on closed_trades(symbol, seq);`,
		`create table if not exists device_tokens (
			token text primary key,
			platform text not null default '',
			created_at timestamptz not null default now()
		);`,
	}

	for i, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
