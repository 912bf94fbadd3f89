package websocket

import (
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"trend-trader/internal/domain"
	"trend-trader/internal/usecase"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StateSource provides the position pushed to clients on connect.
type StateSource interface {
	State() domain.PositionState
	LastResult() (usecase.CycleResult, bool)
}

// Message is the frame pushed to clients.
type Message struct {
	Type     string               `json:"type"`
	Position domain.PositionState `json:"position"`
	Cycle    *usecase.CycleResult `json:"cycle,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Handler streams the position state and every completed cycle.
type Handler struct {
	source StateSource

	mu      sync.Mutex
	clients map[*client]struct{}
}

func NewHandler(source StateSource) *Handler {
	return &Handler{
		source:  source,
		clients: make(map[*client]struct{}),
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", echo.WrapHandler(h))
}

// Publish broadcasts a cycle result. Slow clients miss frames instead of
// blocking the trading loop.
func (h *Handler) Publish(res usecase.CycleResult) {
	data, err := json.Marshal(Message{Type: "cycle", Position: res.State, Cycle: &res})
	if err != nil {
		log.Error().Err(err).Msg("encode websocket frame")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			log.Warn().Str("remote", c.conn.RemoteAddr().String()).Msg("websocket client lagging, frame dropped")
		}
	}
}

// Clients returns the number of connected clients.
func (h *Handler) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if err := h.sendInitial(c); err != nil {
		log.Warn().Err(err).Msg("websocket initial write failed")
		_ = conn.Close()
		return
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	log.Info().Str("remote", conn.RemoteAddr().String()).Msg("websocket client connected")

	go h.writePump(c)
	h.readPump(c)
}

func (h *Handler) sendInitial(c *client) error {
	msg := Message{Type: "state", Position: h.source.State()}
	if last, ok := h.source.LastResult(); ok {
		msg.Cycle = &last
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

func (h *Handler) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// readPump discards inbound frames and detects disconnects.
func (h *Handler) readPump(c *client) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
		log.Info().Str("remote", c.conn.RemoteAddr().String()).Msg("websocket client disconnected")
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
