package gateway

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/EduardoFdeM/pitchai-backend/internal/shared"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames; anything larger is a protocol error.
	maxMessageSize = 512

	// Outbound buffer per connection. Events beyond this are dropped.
	sendBufferSize = 128
)

// WSConn is one WebSocket subscriber. Events are queued on a buffered
// channel and written by a dedicated pump so a slow client never blocks
// the hub.
type WSConn struct {
	id     string
	callID string
	conn   *websocket.Conn
	logger *slog.Logger

	send      chan Event
	done      chan struct{}
	closeOnce sync.Once
}

func NewWSConn(callID string, conn *websocket.Conn, logger *slog.Logger) *WSConn {
	id := shared.NewID("ws_")
	return &WSConn{
		id:     id,
		callID: callID,
		conn:   conn,
		logger: logger.With("component", "ws_conn", "subscriber_id", id, "call_id", callID),
		send:   make(chan Event, sendBufferSize),
		done:   make(chan struct{}),
	}
}

func (c *WSConn) ID() string { return c.id }

// Send queues an event for delivery. Returns false when the buffer is full
// or the connection is closing.
func (c *WSConn) Send(ev Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- ev:
		return true
	default:
		return false
	}
}

// Close tears the connection down. Safe to call more than once.
func (c *WSConn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// ReadPump consumes inbound frames until the peer disconnects. Subscribers
// never send data messages; the pump exists to service pings, pongs and
// close frames. It blocks until the connection dies.
func (c *WSConn) ReadPump() {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket closed unexpectedly", "error", err)
			}
			return
		}
	}
}

// WritePump drains the send buffer onto the wire and keeps the connection
// alive with periodic pings. Runs until Close or a write failure.
func (c *WSConn) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case ev := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.logger.Debug("write failed", "error", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
