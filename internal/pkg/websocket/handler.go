package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// SnapshotFunc returns the state sent to a client right after it connects
type SnapshotFunc func(ctx context.Context) (interface{}, error)

// SnapshotMessageType is the type of the first message on a new connection
const SnapshotMessageType = "snapshot"

// Handler upgrades HTTP requests and attaches the connections to a hub
type Handler struct {
	hub      *Hub
	snapshot SnapshotFunc
	logger   zerolog.Logger
}

// NewHandler creates a new WebSocket handler. snapshot may be nil.
func NewHandler(hub *Hub, snapshot SnapshotFunc, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:      hub,
		snapshot: snapshot,
		logger:   logger,
	}
}

// HandleConnection upgrades the request and registers the client
func (h *Handler) HandleConnection(c *gin.Context) {
	var initial []byte
	if h.snapshot != nil {
		payload, err := h.snapshot(c.Request.Context())
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to build snapshot for new client")
		} else {
			initial, _ = json.Marshal(Message{Type: SnapshotMessageType, Payload: payload, Timestamp: time.Now().UTC()})
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already answered the request
		h.logger.Warn().Err(err).Msg("Failed to upgrade connection to WebSocket")
		return
	}

	client := &Client{
		hub:    h.hub,
		conn:   conn,
		send:   make(chan []byte, 16),
		logger: h.logger,
	}
	if initial != nil {
		client.send <- initial
	}
	if !h.hub.attach(client) {
		h.logger.Debug().Msg("Hub stopped, closing new connection")
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
