package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/balltoss/internal/dependencies/ids"
	"github.com/mcoot/balltoss/internal/model"
)

// Time allowed for disconnect cleanup once the socket is gone
const disconnectTimeout = 5 * time.Second

// Handler upgrades HTTP requests to WebSocket sessions
type Handler struct {
	hub        *Hub
	controller Controller
	dispatcher *Dispatcher
	ids        ids.Generator
	upgrader   websocket.Upgrader
	logger     *slog.Logger

	mu       sync.Mutex
	draining bool
	active   sync.WaitGroup

	// Disconnect cleanups run one at a time. Shutdown drops both occupants
	// of a match together and their match writes must not interleave.
	cleanupMu sync.Mutex
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, controller Controller, gen ids.Generator, logger *slog.Logger) *Handler {
	return &Handler{
		hub:        hub,
		controller: controller,
		dispatcher: NewDispatcher(controller, logger),
		ids:        gen,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients are served from another origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger.With(slog.String("component", "ws")),
	}
}

// ServeHTTP runs one connection from upgrade to disconnect
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.track() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.active.Done()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	id := model.PlayerID(h.ids.NewID())
	ctx := r.Context()

	if _, err := h.controller.Connect(ctx, id); err != nil {
		h.logger.Error("failed to register player",
			slog.String("sid", string(id)),
			slog.Any("error", err))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "registration failed"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	client := NewClient(h.hub, conn, id)
	h.hub.Register(client)

	if frame, err := EncodePush(model.Notification{
		Type:    model.EventConnected,
		Payload: model.ConnectedPayload{SID: id},
	}); err == nil {
		client.Enqueue(frame)
	}

	go client.writePump()
	client.readPump(ctx, h.dispatcher)

	h.hub.Unregister(client)

	h.cleanupMu.Lock()
	defer h.cleanupMu.Unlock()

	// The request context may already be cancelled
	cleanupCtx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	if err := h.controller.Disconnect(cleanupCtx, id); err != nil {
		h.logger.Error("disconnect cleanup failed",
			slog.String("sid", string(id)),
			slog.Any("error", err))
	}
}

func (h *Handler) track() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.draining {
		return false
	}
	h.active.Add(1)
	return true
}

// Drain refuses new connections and waits until every open connection has
// finished its disconnect cleanup, or ctx ends. Close the hub first so the
// open connections are told to go.
func (h *Handler) Drain(ctx context.Context) error {
	h.mu.Lock()
	h.draining = true
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.active.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
