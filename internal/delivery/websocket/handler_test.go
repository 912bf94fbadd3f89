package websocket

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trend-trader/internal/domain"
	"trend-trader/internal/usecase"
)

type staticSource struct {
	state domain.PositionState
}

func (s staticSource) State() domain.PositionState { return s.state }

func (s staticSource) LastResult() (usecase.CycleResult, bool) {
	return usecase.CycleResult{}, false
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHandler_InitialStateAndBroadcast(t *testing.T) {
	h := NewHandler(staticSource{state: domain.NewPositionState("BTCUSDT")})
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	initial := readMessage(t, conn)
	assert.Equal(t, "state", initial.Type)
	assert.Equal(t, "BTCUSDT", initial.Position.Symbol)
	assert.Nil(t, initial.Cycle)

	require.Eventually(t, func() bool { return h.Clients() == 1 }, time.Second, 10*time.Millisecond)

	opened := domain.NewPositionState("BTCUSDT").Opened(domain.SideLong, decimal.NewFromInt(100), decimal.NewFromInt(1), "9", time.Now())
	h.Publish(usecase.CycleResult{Action: usecase.ActionOpened, State: opened})

	msg := readMessage(t, conn)
	assert.Equal(t, "cycle", msg.Type)
	assert.True(t, msg.Position.IsOpen)
	require.NotNil(t, msg.Cycle)
	assert.Equal(t, usecase.ActionOpened, msg.Cycle.Action)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return h.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_PublishWithoutClients(t *testing.T) {
	h := NewHandler(staticSource{})
	assert.NotPanics(t, func() {
		h.Publish(usecase.CycleResult{Action: usecase.ActionHold})
	})
}
