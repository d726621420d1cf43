package gateway

import (
	"log/slog"
	"sync"
)

// Subscriber is one attached event consumer. Send must never block: slow
// consumers drop events instead of stalling the pipeline.
type Subscriber interface {
	ID() string
	Send(ev Event) bool
	Close()
}

// Hub fans events out to the subscribers of each call. It only knows about
// local connections; cross-replica delivery is the Bridge's job.
type Hub struct {
	logger *slog.Logger

	mu   sync.RWMutex
	subs map[string]map[string]Subscriber
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger.With("component", "gateway_hub"),
		subs:   make(map[string]map[string]Subscriber),
	}
}

// Subscribe attaches a subscriber to a call's event stream.
func (h *Hub) Subscribe(callID string, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.subs[callID]
	if !ok {
		conns = make(map[string]Subscriber)
		h.subs[callID] = conns
	}
	conns[sub.ID()] = sub
	h.logger.Debug("subscriber attached", "call_id", callID, "subscriber_id", sub.ID(), "total", len(conns))
}

// Unsubscribe detaches a subscriber and reports how many remain on the call.
func (h *Hub) Unsubscribe(callID, subID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.subs[callID]
	if !ok {
		return 0
	}
	delete(conns, subID)
	if len(conns) == 0 {
		delete(h.subs, callID)
		return 0
	}
	return len(conns)
}

// Broadcast delivers an event to every subscriber of its call. Subscribers
// whose buffers are full miss the event; delivery is best effort.
func (h *Hub) Broadcast(ev Event) {
	h.mu.RLock()
	conns := h.subs[ev.CallID]
	targets := make([]Subscriber, 0, len(conns))
	for _, sub := range conns {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		if !sub.Send(ev) {
			h.logger.Warn("subscriber buffer full, event dropped",
				"call_id", ev.CallID, "subscriber_id", sub.ID(), "type", ev.Type)
		}
	}
}

// SubscriberCount reports how many subscribers a call currently has.
func (h *Hub) SubscriberCount(callID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[callID])
}

// CloseAll closes every subscriber, typically during shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[string]map[string]Subscriber)
	h.mu.Unlock()

	for _, conns := range subs {
		for _, sub := range conns {
			sub.Close()
		}
	}
}
