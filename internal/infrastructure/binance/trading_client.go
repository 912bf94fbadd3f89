package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"trend-trader/internal/domain"
)

// codePositionSideMismatch is returned by futures accounts in one-way mode
// when an order carries LONG/SHORT positionSide.
const codePositionSideMismatch = -4061

// ErrOrderNotFilled is returned when a spot MARKET order comes back in a
// terminal state without a fill.
var ErrOrderNotFilled = errors.New("order not filled")

// SubmitMarketOrder places a MARKET order and returns the fill confirmation.
func (c *Client) SubmitMarketOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderResult, error) {
	if !req.Quantity.IsPositive() {
		return nil, fmt.Errorf("invalid order quantity %s", req.Quantity)
	}

	positionSide := ""
	if c.market == MarketFutures && c.hedgeMode && req.PositionSide != domain.SideNone {
		positionSide = string(req.PositionSide)
	}

	res, err := c.placeOrder(ctx, req, positionSide)
	if err != nil {
		// Fallback for One-way mode where positionSide must be BOTH.
		var apiErr *APIError
		if positionSide != "" && errors.As(err, &apiErr) && apiErr.Code == codePositionSideMismatch {
			res, err = c.placeOrder(ctx, req, "BOTH")
		}
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) placeOrder(ctx context.Context, req domain.OrderRequest, positionSide string) (*domain.OrderResult, error) {
	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("side", string(req.Side))
	params.Set("type", "MARKET")
	params.Set("quantity", req.Quantity.String())
	if positionSide != "" {
		params.Set("positionSide", positionSide)
	}
	if req.ClientOrderID != "" {
		params.Set("newClientOrderId", req.ClientOrderID)
	}
	if c.market == MarketSpot {
		params.Set("newOrderRespType", "FULL")
	}

	body, err := c.signedRequest(ctx, http.MethodPost, c.paths.order, params)
	if err != nil {
		return nil, err
	}

	var binanceResp struct {
		OrderID             int64  `json:"orderId"`
		Status              string `json:"status"`
		ExecutedQty         string `json:"executedQty"`
		AvgPrice            string `json:"avgPrice"`
		CummulativeQuoteQty string `json:"cummulativeQuoteQty"`
	}
	if err := json.Unmarshal(body, &binanceResp); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	if c.market == MarketSpot {
		switch binanceResp.Status {
		case "EXPIRED", "REJECTED", "CANCELED":
			return nil, fmt.Errorf("%w: order %d status %s", ErrOrderNotFilled, binanceResp.OrderID, binanceResp.Status)
		}
	}

	executedQty, _ := decimal.NewFromString(binanceResp.ExecutedQty)
	avgPrice, _ := decimal.NewFromString(binanceResp.AvgPrice)
	if avgPrice.IsZero() && executedQty.IsPositive() {
		// Spot responses carry the quote total instead of an average.
		if quote, err := decimal.NewFromString(binanceResp.CummulativeQuoteQty); err == nil {
			avgPrice = quote.Div(executedQty)
		}
	}

	return &domain.OrderResult{
		OrderID:     strconv.FormatInt(binanceResp.OrderID, 10),
		Status:      binanceResp.Status,
		ExecutedQty: executedQty,
		AvgPrice:    avgPrice,
	}, nil
}

// FetchAvailableBalance returns the free balance of asset.
func (c *Client) FetchAvailableBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	body, err := c.signedRequest(ctx, http.MethodGet, c.paths.balance, nil)
	if err != nil {
		return decimal.Zero, err
	}

	if c.market == MarketFutures {
		var balances []struct {
			Asset            string `json:"asset"`
			AvailableBalance string `json:"availableBalance"`
		}
		if err := json.Unmarshal(body, &balances); err != nil {
			return decimal.Zero, fmt.Errorf("decode balance: %w", err)
		}
		for _, b := range balances {
			if b.Asset == asset {
				return decimal.NewFromString(b.AvailableBalance)
			}
		}
		return decimal.Zero, nil
	}

	var account struct {
		Balances []struct {
			Asset string `json:"asset"`
			Free  string `json:"free"`
		} `json:"balances"`
	}
	if err := json.Unmarshal(body, &account); err != nil {
		return decimal.Zero, fmt.Errorf("decode account: %w", err)
	}
	for _, b := range account.Balances {
		if b.Asset == asset {
			return decimal.NewFromString(b.Free)
		}
	}
	return decimal.Zero, nil
}

var _ domain.Exchange = (*Client)(nil)
