package repository

import (
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"trend-trader/internal/domain"
)

// RedisStore keeps the position state as a JSON string and closed trades in
// a list, both under a key prefix.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisClient connects and pings the server.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) positionKey(symbol string) string {
	return s.prefix + ":position:" + symbol
}

func (s *RedisStore) tradesKey(symbol string) string {
	return s.prefix + ":trades:" + symbol
}

func (s *RedisStore) Load(ctx context.Context, symbol string) (domain.PositionState, error) {
	data, err := s.client.Get(ctx, s.positionKey(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.NewPositionState(symbol), nil
	}
	if err != nil {
		return domain.PositionState{}, fmt.Errorf("redis get position: %w", err)
	}

	var state domain.PositionState
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.PositionState{}, fmt.Errorf("decode position: %w", err)
	}
	return state, nil
}

func (s *RedisStore) Save(ctx context.Context, state domain.PositionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode position: %w", err)
	}
	if err := s.client.Set(ctx, s.positionKey(state.Symbol), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set position: %w", err)
	}
	return nil
}

func (s *RedisStore) RecordClosedTrade(ctx context.Context, trade domain.ClosedTradeRecord) error {
	data, err := json.Marshal(trade)
	if err != nil {
		return fmt.Errorf("encode trade: %w", err)
	}
	if err := s.client.RPush(ctx, s.tradesKey(trade.Symbol), data).Err(); err != nil {
		return fmt.Errorf("redis push trade: %w", err)
	}
	return nil
}

func (s *RedisStore) ListClosedTrades(ctx context.Context, symbol string) ([]domain.ClosedTradeRecord, error) {
	items, err := s.client.LRange(ctx, s.tradesKey(symbol), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis range trades: %w", err)
	}

	trades := make([]domain.ClosedTradeRecord, 0, len(items))
	for _, item := range items {
		var t domain.ClosedTradeRecord
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, fmt.Errorf("decode trade: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, nil
}

var (
	_ domain.PositionStore   = (*RedisStore)(nil)
	_ domain.TradeRepository = (*RedisStore)(nil)
)
