package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/EduardoFdeM/pitchai-backend/internal/shared"
)

const eventChannelPrefix = "call.events."

// EventChannel is the Redis pub/sub channel carrying one call's events.
func EventChannel(callID string) string {
	return eventChannelPrefix + callID
}

// Bridge relays call events between replicas over Redis pub/sub. Events
// published locally are stamped with this node's origin so the relay can
// skip them when they echo back.
type Bridge struct {
	redis  *redis.Client
	hub    *Hub
	logger *slog.Logger
	nodeID string

	mu   sync.Mutex
	subs map[string]context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
}

func NewBridge(redisClient *redis.Client, hub *Hub, logger *slog.Logger) *Bridge {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bridge{
		redis:  redisClient,
		hub:    hub,
		logger: logger.With("component", "gateway_bridge"),
		nodeID: shared.NewID("node_"),
		subs:   make(map[string]context.CancelFunc),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Publish pushes an event onto the call's channel for other replicas.
func (b *Bridge) Publish(ctx context.Context, ev Event) error {
	if ev.Origin == "" {
		ev.Origin = b.nodeID
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.redis.Publish(ctx, EventChannel(ev.CallID), data).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Subscribe starts relaying a call's channel into the local hub. Calling
// it again for the same call is a no-op.
func (b *Bridge) Subscribe(callID string) {
	b.mu.Lock()
	if _, ok := b.subs[callID]; ok {
		b.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(b.ctx)
	b.subs[callID] = cancel
	b.mu.Unlock()

	go b.relay(ctx, callID)
}

// Unsubscribe stops the relay for a call once its last subscriber leaves.
func (b *Bridge) Unsubscribe(callID string) {
	b.mu.Lock()
	cancel, ok := b.subs[callID]
	if ok {
		delete(b.subs, callID)
	}
	b.mu.Unlock()
	if ok {
		cancel()
	}
}

func (b *Bridge) relay(ctx context.Context, callID string) {
	pubsub := b.redis.Subscribe(ctx, EventChannel(callID))
	defer pubsub.Close()

	b.logger.Debug("relay started", "call_id", callID)
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				b.logger.Warn("relay receive failed", "call_id", callID, "error", err)
			}
			return
		}
		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			b.logger.Warn("malformed relay event", "call_id", callID, "error", err)
			continue
		}
		if ev.Origin == b.nodeID {
			continue
		}
		b.hub.Broadcast(ev)
	}
}

// Close stops every relay. In-flight goroutines exit on their next receive.
func (b *Bridge) Close() {
	b.cancel()
	b.mu.Lock()
	b.subs = make(map[string]context.CancelFunc)
	b.mu.Unlock()
}
