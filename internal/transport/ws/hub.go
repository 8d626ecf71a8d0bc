package ws

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/balltoss/internal/model"
	"github.com/mcoot/balltoss/internal/pubsub"
	"github.com/mcoot/balltoss/internal/services/match"
)

// Hub tracks the connections held by this server instance and routes
// notifications to them. Frames for connections held elsewhere go through
// the relay, when one is configured.
type Hub struct {
	clients map[model.PlayerID]*Client
	mu      sync.RWMutex
	relay   pubsub.Relay
	logger  *slog.Logger

	// Channels for managing clients
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	closeOnce  sync.Once
}

// Ensure Hub implements Notifier
var _ match.Notifier = (*Hub)(nil)

// NewHub creates a new Hub. relay may be nil for a single-instance server.
func NewHub(relay pubsub.Relay, logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[model.PlayerID]*Client),
		relay:      relay,
		logger:     logger.With(slog.String("component", "ws")),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	h.logger.Info("ws hub started")
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if existing, ok := h.clients[client.id]; ok && existing != client {
				existing.close()
			}
			h.clients[client.id] = client
			clientCount := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("ws client registered",
				slog.String("sid", string(client.id)),
				slog.Int("total_clients", clientCount))

		case client := <-h.unregister:
			h.mu.Lock()
			if existing, ok := h.clients[client.id]; ok && existing == client {
				delete(h.clients, client.id)
			}
			clientCount := len(h.clients)
			h.mu.Unlock()
			client.close()
			h.logger.Info("ws client unregistered",
				slog.String("sid", string(client.id)),
				slog.Duration("connection_duration", time.Since(client.connectedAt)),
				slog.Int("total_clients", clientCount))

		case <-h.done:
			h.mu.Lock()
			clientCount := len(h.clients)
			for id, client := range h.clients {
				client.close()
				delete(h.clients, id)
			}
			h.mu.Unlock()
			h.logger.Info("ws hub stopped", slog.Int("disconnected_clients", clientCount))
			return
		}
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Close shuts down the hub and closes every client
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Notify encodes the notification and delivers it to the addressed connection
func (h *Hub) Notify(ctx context.Context, to model.PlayerID, n model.Notification) {
	frame, err := EncodePush(n)
	if err != nil {
		h.logger.Error("failed to encode notification",
			slog.String("event", string(n.Type)),
			slog.Any("error", err))
		return
	}

	if h.deliverLocal(to, frame) {
		return
	}

	if h.relay == nil {
		h.logger.Debug("notification dropped - no such connection",
			slog.String("sid", string(to)),
			slog.String("event", string(n.Type)))
		return
	}

	if err := h.relay.Publish(ctx, pubsub.Delivery{To: to, Frame: frame}); err != nil {
		h.logger.Warn("relay publish failed",
			slog.String("sid", string(to)),
			slog.Any("error", err))
	}
}

// DeliverFrame hands a relayed frame to a local connection. Frames for
// connections this instance does not hold are ignored.
func (h *Hub) DeliverFrame(d pubsub.Delivery) {
	h.deliverLocal(d.To, d.Frame)
}

// deliverLocal reports whether the connection is held here. A held
// connection with a full buffer drops the frame.
func (h *Hub) deliverLocal(to model.PlayerID, frame []byte) bool {
	h.mu.RLock()
	client, ok := h.clients[to]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	if !client.Enqueue(frame) {
		h.logger.Warn("ws message dropped - client buffer full",
			slog.String("sid", string(to)))
	}
	return true
}
