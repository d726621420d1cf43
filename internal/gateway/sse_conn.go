package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/EduardoFdeM/pitchai-backend/internal/shared"
)

// Comment lines keep proxies from timing out idle streams.
const keepaliveInterval = 30 * time.Second

// SSEConn is one Server-Sent Events subscriber. The serving goroutine calls
// Run, which owns the http.ResponseWriter; the hub only touches Send.
type SSEConn struct {
	id     string
	callID string
	w      http.ResponseWriter
	flush  http.Flusher
	logger *slog.Logger

	send      chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// NewSSEConn wraps a response writer for streaming. Fails when the writer
// cannot flush, which means the transport cannot stream at all.
func NewSSEConn(callID string, w http.ResponseWriter, logger *slog.Logger) (*SSEConn, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, http.ErrNotSupported
	}
	id := shared.NewID("sse_")
	return &SSEConn{
		id:     id,
		callID: callID,
		w:      w,
		flush:  flusher,
		logger: logger.With("component", "sse_conn", "subscriber_id", id, "call_id", callID),
		send:   make(chan Event, sendBufferSize),
		done:   make(chan struct{}),
	}, nil
}

func (c *SSEConn) ID() string { return c.id }

// Send queues an event for delivery. Returns false when the buffer is full
// or the stream is closing.
func (c *SSEConn) Send(ev Event) bool {
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

// Close stops the Run loop. Safe to call more than once.
func (c *SSEConn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Run writes queued events to the stream until the client disconnects or
// Close is called. It must run on the goroutine serving the request.
func (c *SSEConn) Run(ctx context.Context) {
	defer c.Close()

	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case ev := <-c.send:
			if err := c.writeEvent(ev); err != nil {
				c.logger.Debug("write failed", "error", err)
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(c.w, ":keepalive\n\n"); err != nil {
				return
			}
			c.flush.Flush()
		case <-ctx.Done():
			return
		case <-c.done:
			return
		}
	}
}

func (c *SSEConn) writeEvent(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(c.w, "data: %s\n\n", data); err != nil {
		return err
	}
	c.flush.Flush()
	return nil
}
