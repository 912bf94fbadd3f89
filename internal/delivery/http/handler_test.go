package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trend-trader/internal/domain"
	"trend-trader/internal/repository"
	"trend-trader/internal/usecase"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeLoop struct {
	state  domain.PositionState
	dirty  bool
	last   *usecase.CycleResult
	result usecase.CycleResult
	err    error
	runs   int
}

func (f *fakeLoop) RunOnce(context.Context) (usecase.CycleResult, error) {
	f.runs++
	return f.result, f.err
}
func (f *fakeLoop) State() domain.PositionState { return f.state }
func (f *fakeLoop) Dirty() bool { return f.dirty }
func (f *fakeLoop) Params() usecase.StrategyParams {
	p := usecase.DefaultStrategyParams(domain.ModeSpot)
	p.Symbol = "BTCUSDT"
	return p
}
func (f *fakeLoop) LastResult() (usecase.CycleResult, bool) {
	if f.last == nil {
		return usecase.CycleResult{}, false
	}
	return *f.last, true
}

type fakeNotifier struct {
	sent []domain.Notification
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, n domain.Notification) error {
	f.sent = append(f.sent, n)
	return f.err
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func do(t *testing.T, srv *Server, method, target, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec.Code, env
}

func trade(id, symbol, entry, exit string) domain.ClosedTradeRecord {
	pos := domain.NewPositionState(symbol).Opened(domain.SideLong, decimal.RequireFromString(entry), decimal.NewFromInt(1), "1", t0)
	tr := domain.NewClosedTradeRecord(pos, decimal.RequireFromString(exit), decimal.NewFromInt(1), domain.ExitTakeProfit, "2", t0.Add(time.Hour))
	tr.ID = id
	return tr
}

func newTraderServer(t *testing.T, loop *fakeLoop) *Server {
	t.Helper()
	history := repository.NewInMemoryTradeRepository()
	ctx := context.Background()
	require.NoError(t, history.RecordClosedTrade(ctx, trade("a", "BTCUSDT", "100", "103")))
	require.NoError(t, history.RecordClosedTrade(ctx, trade("b", "ETHUSDT", "100", "99")))
	require.NoError(t, history.RecordClosedTrade(ctx, trade("c", "BTCUSDT", "100", "98")))
	return NewServer([]RouteRegistrar{NewTraderHandler(loop, history)})
}

func TestTraderHandler_Status(t *testing.T) {
	state := domain.NewPositionState("BTCUSDT").Opened(domain.SideLong, decimal.NewFromInt(100), decimal.NewFromInt(1), "7", t0)
	last := usecase.CycleResult{Action: usecase.ActionOpened, Time: t0, State: state}
	srv := newTraderServer(t, &fakeLoop{state: state, dirty: true, last: &last})

	code, env := do(t, srv, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, code)

	var got struct {
		Position  domain.PositionState `json:"position"`
		Dirty     bool                 `json:"dirty"`
		LastCycle *usecase.CycleResult `json:"lastCycle"`
		Params    paramsView           `json:"params"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.True(t, got.Position.IsOpen)
	assert.True(t, got.Position.EntryPrice.Equal(decimal.NewFromInt(100)))
	assert.True(t, got.Dirty)
	require.NotNil(t, got.LastCycle)
	assert.Equal(t, usecase.ActionOpened, got.LastCycle.Action)
	assert.Equal(t, "BTCUSDT", got.Params.Symbol)
	assert.Equal(t, domain.ModeSpot, got.Params.Mode)
}

func TestTraderHandler_StatusWithoutCycle(t *testing.T) {
	srv := newTraderServer(t, &fakeLoop{state: domain.NewPositionState("BTCUSDT")})

	code, env := do(t, srv, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, code)
	assert.NotContains(t, string(env.Data), "lastCycle")
}

func TestTraderHandler_Trades(t *testing.T) {
	srv := newTraderServer(t, &fakeLoop{})

	tests := []struct {
		target string
		ids    []string
	}{
		{"/api/trades", []string{"a", "c"}},
		{"/api/trades?symbol=ETHUSDT", []string{"b"}},
		{"/api/trades?symbol=SOLUSDT", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			code, env := do(t, srv, http.MethodGet, tt.target, "")
			require.Equal(t, http.StatusOK, code)

			var trades []domain.ClosedTradeRecord
			require.NoError(t, json.Unmarshal(env.Data, &trades))
			ids := make([]string, 0, len(trades))
			for _, tr := range trades {
				ids = append(ids, tr.ID)
			}
			assert.Equal(t, tt.ids, ids)
		})
	}
}

func TestTraderHandler_Report(t *testing.T) {
	srv := newTraderServer(t, &fakeLoop{})

	code, env := do(t, srv, http.MethodGet, "/api/report", "")
	require.Equal(t, http.StatusOK, code)

	var report usecase.TradeReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, 2, report.TotalTrades)
	assert.Equal(t, 1, report.ProfitableTrades)
	assert.Equal(t, 1, report.LosingTrades)
	assert.True(t, report.TotalPnL.Equal(decimal.NewFromInt(1)), "total pnl %s", report.TotalPnL)
}

func TestTraderHandler_RunCycle(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"ok", nil, http.StatusOK},
		{"persist failure", fmt.Errorf("%w: %w", usecase.ErrPersistState, errors.New("disk full")), http.StatusServiceUnavailable},
		{"load failure", errors.New("store offline"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loop := &fakeLoop{result: usecase.CycleResult{Action: usecase.ActionHold, Time: t0}, err: tt.err}
			srv := newTraderServer(t, loop)

			code, env := do(t, srv, http.MethodPost, "/api/cycle/run", "")
			assert.Equal(t, tt.status, code)
			assert.Equal(t, 1, loop.runs)

			var got runCycleResponse
			require.NoError(t, json.Unmarshal(env.Data, &got))
			assert.Equal(t, usecase.ActionHold, got.Cycle.Action)
			if tt.err != nil {
				assert.Equal(t, tt.err.Error(), got.Error)
			} else {
				assert.Empty(t, got.Error)
			}
		})
	}
}

func TestDeviceHandler(t *testing.T) {
	tokens := repository.NewTokenRepository()
	srv := NewServer([]RouteRegistrar{NewDeviceHandler(tokens, nil)})

	code, env := do(t, srv, http.MethodPost, "/api/devices", `{"platform":"ios"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, string(env.Data), "ERR_REQUIRED")

	code, env = do(t, srv, http.MethodPost, "/api/devices", `{"token":"abc","platform":"symbian"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, string(env.Data), "ERR_ONEOF")

	code, env = do(t, srv, http.MethodPost, "/api/devices", `{"token":"abc"}`)
	require.Equal(t, http.StatusCreated, code)
	var resp deviceResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, 1, resp.Count)

	code, env = do(t, srv, http.MethodGet, "/api/devices/count", "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, 1, resp.Count)

	code, env = do(t, srv, http.MethodDelete, "/api/devices/abc", "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, 0, resp.Count)
}

func TestDeviceHandler_SendTest(t *testing.T) {
	code, _ := do(t, NewServer([]RouteRegistrar{NewDeviceHandler(repository.NewTokenRepository(), nil)}),
		http.MethodPost, "/api/notifications/test", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	n := &fakeNotifier{}
	code, _ = do(t, NewServer([]RouteRegistrar{NewDeviceHandler(repository.NewTokenRepository(), n)}),
		http.MethodPost, "/api/notifications/test", "")
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, n.sent, 1)
	assert.Equal(t, "TEST", n.sent[0].Kind)

	failing := &fakeNotifier{err: errors.New("fcm down")}
	code, _ = do(t, NewServer([]RouteRegistrar{NewDeviceHandler(repository.NewTokenRepository(), failing)}),
		http.MethodPost, "/api/notifications/test", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestServer_MetricsAndHealth(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_probe_total", Help: "probe"})
	reg.MustRegister(counter)
	counter.Inc()

	srv := NewServer(nil, WithMetrics("/metrics", reg))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_probe_total 1")

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec = httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
