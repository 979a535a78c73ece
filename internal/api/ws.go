package api

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/kibadist/agentui/internal/metrics"
	"github.com/kibadist/agentui/pkg/protocol"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const wsSendBuffer = 64

// wsEnvelope frames server-to-client WebSocket messages.
type wsEnvelope struct {
	Type    string `json:"type"` // "ui" | "error"
	Event   any    `json:"event,omitempty"`
	Message string `json:"message,omitempty"`
}

// wsClient owns the write side of one WebSocket connection. Queue never
// blocks; a client that cannot keep up is disconnected. The mutex orders
// Queue against Close so no send can race the channel close.
type wsClient struct {
	conn *websocket.Conn
	send chan wsEnvelope

	mu     sync.Mutex
	closed bool
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		conn: conn,
		send: make(chan wsEnvelope, wsSendBuffer),
	}
}

func (c *wsClient) Queue(msg wsEnvelope) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *wsClient) WriteLoop() {
	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
}

func (c *wsClient) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()
	_ = c.conn.Close()
}

// websocketStream is the bidirectional stream adapter: UI patch events go
// down, user action events come up.
func (h *Handler) websocketStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sub, err := h.bus.SubscribeUI(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found", "")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		sub.Cancel()
		return
	}

	client := newWSClient(conn)
	go client.WriteLoop()

	// Forward UI events until the session closes or the client drops.
	go func() {
		defer client.Close()
		for ev := range sub.C {
			if !client.Queue(wsEnvelope{Type: "ui", Event: ev}) {
				metrics.SubscriberOverflow.WithLabelValues("ws").Inc()
				h.log.Warn("websocket client fell behind, disconnecting",
					"session_id", sessionID)
				return
			}
		}
	}()

	defer sub.Cancel()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		action, err := protocol.ParseActionEvent(raw)
		if err != nil {
			metrics.EventsRejected.WithLabelValues("validation").Inc()
			client.Queue(wsEnvelope{Type: "error", Message: err.Error()})
			continue
		}
		if action.Base().SessionID != sessionID {
			metrics.EventsRejected.WithLabelValues("session_mismatch").Inc()
			client.Queue(wsEnvelope{Type: "error", Message: "action sessionId does not match stream"})
			continue
		}
		if !h.limiter.allow(sessionID) {
			metrics.EventsRejected.WithLabelValues("rate_limit").Inc()
			client.Queue(wsEnvelope{Type: "error", Message: "too many actions"})
			continue
		}
		if err := h.bus.EmitAction(sessionID, action); err != nil {
			client.Queue(wsEnvelope{Type: "error", Message: "session closed"})
			return
		}
	}
}
