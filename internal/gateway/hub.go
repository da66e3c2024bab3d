// Package gateway exposes the live loop to external clients: a WebSocket
// event feed for the GUI plus health and metrics endpoints. The [Hub]
// implements session.Publisher, so the runner stays unaware of transport.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/coder/websocket"

	"github.com/earshot-ai/earshot/internal/observe"
	"github.com/earshot-ai/earshot/internal/session"
)

// clientBuffer is the number of events queued per client before the hub
// starts dropping. Publish must never block the runner, so a client that
// cannot keep up loses events rather than stalling the pipeline.
const clientBuffer = 64

// client is one connected WebSocket consumer.
type client struct {
	events chan session.Event
}

// Hub fans runner events out to all connected WebSocket clients.
type Hub struct {
	logger  *slog.Logger
	metrics *observe.Metrics

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub returns an empty Hub. metrics may be nil.
func NewHub(logger *slog.Logger, metrics *observe.Metrics) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:  logger,
		metrics: metrics,
		clients: make(map[*client]struct{}),
	}
}

// Publish implements session.Publisher. Events are queued per client; full
// queues drop the event for that client.
func (h *Hub) Publish(event session.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.events <- event:
		default:
			h.logger.Warn("dropping event for slow client", "type", event.Type)
		}
	}
}

// ClientCount reports how many WebSocket clients are attached.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close detaches all clients and rejects future registrations.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		close(c.events)
		if h.metrics != nil {
			h.metrics.ConnectedClients.Add(context.Background(), -1)
		}
	}
	h.clients = make(map[*client]struct{})
}

// register attaches a client; it returns nil when the hub is closed.
func (h *Hub) register(ctx context.Context) *client {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}

	c := &client{events: make(chan session.Event, clientBuffer)}
	h.clients[c] = struct{}{}
	if h.metrics != nil {
		h.metrics.ConnectedClients.Add(ctx, 1)
	}
	return c
}

func (h *Hub) unregister(ctx context.Context, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.events)
	if h.metrics != nil {
		h.metrics.ConnectedClients.Add(ctx, -1)
	}
}

// serve pumps queued events to one WebSocket connection as JSON text frames
// until the client disconnects, the hub closes, or ctx is cancelled.
func (h *Hub) serve(ctx context.Context, conn *websocket.Conn) {
	c := h.register(ctx)
	if c == nil {
		conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	}
	defer h.unregister(ctx, c)

	// Drain reads so pings are answered and disconnects surface promptly.
	readCtx := conn.CloseRead(ctx)

	for {
		select {
		case <-readCtx.Done():
			return
		case event, ok := <-c.events:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "shutting down")
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("encoding event", "type", event.Type, "error", err)
				continue
			}
			if err := conn.Write(readCtx, websocket.MessageText, data); err != nil {
				h.logger.Debug("client write failed, disconnecting", "error", err)
				return
			}
		}
	}
}
