package binance

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"trend-trader/internal/domain"
)

// FetchCandles returns the last limit klines for symbol, oldest first.
// Binance returns: [ [open_time, open, high, low, close, volume, close_time, ...], ... ]
func (c *Client) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.publicRequest(ctx, c.paths.klines, params)
	if err != nil {
		return nil, err
	}

	var raw [][]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}

	candles := make([]domain.Candle, 0, len(raw))
	for i, k := range raw {
		candle, err := parseKline(k)
		if err != nil {
			return nil, fmt.Errorf("kline %d: %w", i, err)
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

func parseKline(k []json.RawMessage) (domain.Candle, error) {
	if len(k) < 7 {
		return domain.Candle{}, fmt.Errorf("%w: %d fields", domain.ErrInvalidCandle, len(k))
	}

	var openMs, closeMs int64
	if err := json.Unmarshal(k[0], &openMs); err != nil {
		return domain.Candle{}, fmt.Errorf("open time: %w", err)
	}
	if err := json.Unmarshal(k[6], &closeMs); err != nil {
		return domain.Candle{}, fmt.Errorf("close time: %w", err)
	}

	nums := make([]decimal.Decimal, 5)
	for i := range nums {
		var s string
		if err := json.Unmarshal(k[i+1], &s); err != nil {
			return domain.Candle{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		v, err := decimal.NewFromString(s)
		if err != nil {
			return domain.Candle{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		nums[i] = v
	}

	candle := domain.Candle{
		OpenTime:  time.UnixMilli(openMs).UTC(),
		Open:      nums[0],
		High:      nums[1],
		Low:       nums[2],
		Close:     nums[3],
		Volume:    nums[4],
		CloseTime: time.UnixMilli(closeMs).UTC(),
	}
	if err := candle.Validate(); err != nil {
		return domain.Candle{}, err
	}
	return candle, nil
}
