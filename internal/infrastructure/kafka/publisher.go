package kafka

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"trend-trader/internal/domain"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// TradePublisher emits every closed trade as a JSON message keyed by symbol.
type TradePublisher struct {
	writer messageWriter
	topic  string
}

// NewTradePublisher creates a synchronous writer that waits for all replicas.
func NewTradePublisher(brokers []string, topic string) (*TradePublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &TradePublisher{writer: w, topic: topic}, nil
}

func (p *TradePublisher) RecordClosedTrade(ctx context.Context, trade domain.ClosedTradeRecord) error {
	value, err := json.Marshal(trade)
	if err != nil {
		return fmt.Errorf("marshal trade: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(trade.Symbol),
		Value: value,
		Time:  trade.Timestamp,
		Headers: []kafka.Header{
			{Key: "trade-id", Value: []byte(trade.ID)},
			{Key: "result", Value: []byte(trade.Result)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish trade to %s: %w", p.topic, err)
	}
	return nil
}

func (p *TradePublisher) Close() error {
	return p.writer.Close()
}

var _ domain.TradeRecorder = (*TradePublisher)(nil)
