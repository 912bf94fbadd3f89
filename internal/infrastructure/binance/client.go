package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
)

const (
	SpotBaseURL           = "https://api.binance.com"
	FapiBaseURL           = "https://fapi.binance.com"
	SpotTestnetBaseURL    = "https://testnet.binance.vision"
	FuturesTestnetBaseURL = "https://testnet.binancefuture.com"

	defaultRecvWindow = 5000
)

// Market selects the REST surface the client talks to.
type Market string

const (
	MarketSpot    Market = "spot"
	MarketFutures Market = "futures"
)

type endpoints struct {
	klines  string
	order   string
	balance string
}

var marketEndpoints = map[Market]endpoints{
	MarketSpot:    {klines: "/api/v3/klines", order: "/api/v3/order", balance: "/api/v3/account"},
	MarketFutures: {klines: "/fapi/v1/klines", order: "/fapi/v1/order", balance: "/fapi/v2/balance"},
}

// Client handles public and signed Binance REST requests for one market.
type Client struct {
	market     Market
	paths      endpoints
	apiKey     string
	secretKey  string
	baseURL    string
	recvWindow int
	hedgeMode  bool
	httpClient *http.Client
	now        func() time.Time
}

type Option func(*Client)

// WithBaseURL overrides the REST root, mostly for tests.
func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = u } }

// WithTestnet points the client at the public testnet for its market.
func WithTestnet() Option {
	return func(c *Client) {
		if c.market == MarketFutures {
			c.baseURL = FuturesTestnetBaseURL
		} else {
			c.baseURL = SpotTestnetBaseURL
		}
	}
}

func WithRecvWindow(ms int) Option { return func(c *Client) { c.recvWindow = ms } }

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHedgeMode sends positionSide on futures orders.
func WithHedgeMode(enabled bool) Option { return func(c *Client) { c.hedgeMode = enabled } }

// NewClient creates a Binance client. Credentials may be empty when only
// public market data is needed.
func NewClient(market Market, apiKey, secretKey string, opts ...Option) *Client {
	baseURL := SpotBaseURL
	if market == MarketFutures {
		baseURL = FapiBaseURL
	}

	c := &Client{
		market:     market,
		paths:      marketEndpoints[market],
		apiKey:     apiKey,
		secretKey:  secretKey,
		baseURL:    baseURL,
		recvWindow: defaultRecvWindow,
		hedgeMode:  true,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Market returns the market the client was built for.
func (c *Client) Market() Market { return c.market }

func (c *Client) publicRequest(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	fullURL := c.baseURL + endpoint
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

// signedRequest makes a signed API request
func (c *Client) signedRequest(ctx context.Context, method, endpoint string, params url.Values) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}

	params.Set("recvWindow", strconv.Itoa(c.recvWindow))
	params.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))

	queryString := params.Encode()
	fullURL := c.baseURL + endpoint + "?" + queryString + "&signature=" + c.sign(queryString)

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", c.apiKey)

	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, parseAPIError(resp.StatusCode, body)
	}
	return body, nil
}

// sign creates HMAC SHA256 signature
func (c *Client) sign(message string) string {
	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// APIError captures structured error info returned by Binance.
type APIError struct {
	StatusCode int
	Code       int    `json:"code"`
	Message    string `json:"msg"`
	Body       string
}

func (e *APIError) Error() string {
	if e == nil {
		return "binance API error"
	}
	if e.Code != 0 || e.Message != "" {
		return fmt.Sprintf("binance API error %d (code=%d): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("binance API error %d: %s", e.StatusCode, e.Body)
}

func parseAPIError(statusCode int, body []byte) error {
	var parsed struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && (parsed.Code != 0 || parsed.Msg != "") {
		return &APIError{StatusCode: statusCode, Code: parsed.Code, Message: parsed.Msg, Body: string(body)}
	}
	return &APIError{StatusCode: statusCode, Body: string(body)}
}
