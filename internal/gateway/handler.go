package gateway

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/EduardoFdeM/pitchai-backend/internal/shared"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler serves the live event feeds for a call.
type Handler struct {
	hub    *Hub
	bridge *Bridge
	logger *slog.Logger
}

// NewHandler creates the event feed handler. bridge may be nil when the
// deployment runs a single replica without Redis relay.
func NewHandler(hub *Hub, bridge *Bridge, logger *slog.Logger) *Handler {
	return &Handler{
		hub:    hub,
		bridge: bridge,
		logger: logger.With("handler", "gateway"),
	}
}

// RegisterRoutes registers the event feed routes on the calls group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/:id/events/ws", h.StreamWS)
	g.GET("/:id/events/sse", h.StreamSSE)
}

// StreamWS godoc
// @Summary Stream call events over WebSocket
// @Description Upgrades the connection and pushes chunk, transcript and status events for the call as JSON frames.
// @Tags events
// @Param id path string true "Call ID"
// @Success 101 {string} string "Switching Protocols"
// @Failure 400 {object} shared.APIError
// @Router /calls/{id}/events/ws [get]
func (h *Handler) StreamWS(c echo.Context) error {
	callID := c.Param("id")

	ws, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.logger.Warn("websocket upgrade failed", "call_id", callID, "error", err)
		return nil
	}

	conn := NewWSConn(callID, ws, h.logger)
	h.attach(callID, conn)
	h.logger.Info("websocket subscriber connected", "call_id", callID, "subscriber_id", conn.ID())

	go conn.WritePump()
	conn.ReadPump()

	h.detach(callID, conn.ID())
	h.logger.Info("websocket subscriber disconnected", "call_id", callID, "subscriber_id", conn.ID())
	return nil
}

// StreamSSE godoc
// @Summary Stream call events over Server-Sent Events
// @Description Opens an SSE stream carrying chunk, transcript and status events for the call. Each event is one data line of JSON.
// @Tags events
// @Produce plain
// @Param id path string true "Call ID"
// @Success 200 {string} string "event stream"
// @Failure 500 {object} shared.APIError
// @Router /calls/{id}/events/sse [get]
func (h *Handler) StreamSSE(c echo.Context) error {
	callID := c.Param("id")

	conn, err := NewSSEConn(callID, c.Response(), h.logger)
	if err != nil {
		return shared.InternalError("streaming_unsupported", "response writer cannot stream")
	}

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Flush()

	h.attach(callID, conn)
	h.logger.Info("sse subscriber connected", "call_id", callID, "subscriber_id", conn.ID())

	conn.Run(c.Request().Context())

	h.detach(callID, conn.ID())
	h.logger.Info("sse subscriber disconnected", "call_id", callID, "subscriber_id", conn.ID())
	return nil
}

func (h *Handler) attach(callID string, sub Subscriber) {
	h.hub.Subscribe(callID, sub)
	if h.bridge != nil {
		h.bridge.Subscribe(callID)
	}
}

func (h *Handler) detach(callID, subID string) {
	remaining := h.hub.Unsubscribe(callID, subID)
	if remaining == 0 && h.bridge != nil {
		h.bridge.Unsubscribe(callID)
	}
}
