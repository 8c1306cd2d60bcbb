package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"fleet-monitor/telemetry/internal/domain"
	"fleet-monitor/telemetry/internal/metrics"
)

const streamWriteWait = 5 * time.Second

type streamMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type streamClient struct {
	send chan []byte
}

// StreamHub pushes readings and alerts to websocket clients. It is registered
// on the vehicle as a subscriber and on the dispatcher as an alert sink.
// Slow clients lose messages rather than blocking the monitoring loop.
type StreamHub struct {
	mu      sync.Mutex
	clients map[*streamClient]struct{}
	buffer  int
	closed  chan struct{}
	once    sync.Once

	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewStreamHub(buffer int, logger *slog.Logger) *StreamHub {
	return &StreamHub{
		clients: make(map[*streamClient]struct{}),
		buffer:  buffer,
		closed:  make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

func (h *StreamHub) Update(_ context.Context, r domain.Reading) error {
	h.broadcast("reading", toReadingView(r))
	return nil
}

func (h *StreamHub) Publish(_ context.Context, a domain.Alert) error {
	h.broadcast("alert", toAlertView(a))
	return nil
}

func (h *StreamHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client. Hijacked connections are not closed by
// http.Server.Shutdown.
func (h *StreamHub) Close() {
	h.once.Do(func() { close(h.closed) })
}

func (h *StreamHub) broadcast(kind string, data interface{}) {
	payload, err := json.Marshal(streamMessage{Type: kind, Data: data})
	if err != nil {
		h.logger.Error("failed to encode stream message", "type", kind, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			metrics.StreamMessagesDropped.Add(1)
		}
	}
}

func (h *StreamHub) add(c *streamClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	metrics.StreamClients.Add(1)
}

func (h *StreamHub) remove(c *streamClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	metrics.StreamClients.Add(-1)
}

func (h *StreamHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &streamClient{send: make(chan []byte, h.buffer)}
	h.add(c)
	defer func() {
		h.remove(c)
		conn.Close()
	}()
	h.logger.Info("stream client connected", "remote", r.RemoteAddr)

	// Clients never send anything; reading only surfaces the close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			h.logger.Info("stream client disconnected", "remote", r.RemoteAddr)
			return
		case <-h.closed:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(streamWriteWait))
			return
		case msg := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Warn("stream write failed", "remote", r.RemoteAddr, "error", err)
				return
			}
		}
	}
}
