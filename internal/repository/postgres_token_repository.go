package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"trend-trader/internal/domain"
)

// PostgresTokenRepository keeps device tokens across restarts.
type PostgresTokenRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresTokenRepository(pool *pgxpool.Pool) *PostgresTokenRepository {
	return &PostgresTokenRepository{pool: pool}
}

func (r *PostgresTokenRepository) RegisterToken(ctx context.Context, token, platform string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		insert into device_tokens(token, platform, created_at)
		values ($1,$2,$3)
		on conflict (token) do update set
			platform = excluded.platform,
			created_at = excluded.created_at
	`, token, platform, at)
	return err
}

func (r *PostgresTokenRepository) UnregisterToken(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx, `delete from device_tokens where token = $1`, token)
	return err
}

func (r *PostgresTokenRepository) GetAllTokens(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `select token from device_tokens order by created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tokens := make([]string, 0)
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

var _ domain.DeviceTokenRepository = (*PostgresTokenRepository)(nil)
