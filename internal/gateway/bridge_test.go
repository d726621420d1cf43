package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type bridgeFixture struct {
	bridgeA *Bridge
	bridgeB *Bridge
	hubA    *Hub
	hubB    *Hub
}

// newBridgeFixture wires two bridges to one miniredis, simulating two
// replicas sharing a Redis.
func newBridgeFixture(t *testing.T) *bridgeFixture {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	clientA := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	clientB := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		clientA.Close()
		clientB.Close()
	})

	f := &bridgeFixture{
		hubA: NewHub(quietLogger()),
		hubB: NewHub(quietLogger()),
	}
	f.bridgeA = NewBridge(clientA, f.hubA, quietLogger())
	f.bridgeB = NewBridge(clientB, f.hubB, quietLogger())
	t.Cleanup(func() {
		f.bridgeA.Close()
		f.bridgeB.Close()
	})
	return f
}

// publishUntil republishes ev from the bridge until the subscriber sees at
// least one event. Pub/sub subscriptions establish asynchronously, so the
// first publishes can land before the relay is listening.
func publishUntil(t *testing.T, b *Bridge, ev Event, sub *fakeSub) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if err := b.Publish(context.Background(), ev); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		if len(sub.snapshot()) > 0 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("subscriber never received the relayed event")
}

func TestBridge_RelaysAcrossNodes(t *testing.T) {
	f := newBridgeFixture(t)

	remote := &fakeSub{id: "remote"}
	f.hubB.Subscribe("call_x", remote)
	f.bridgeB.Subscribe("call_x")

	publishUntil(t, f.bridgeA, NewStatusEvent("call_x", "active", map[string]any{"decoder": "simulated"}), remote)

	events := remote.snapshot()
	if events[0].Type != EventStatus || events[0].CallID != "call_x" {
		t.Errorf("relayed event = %s/%s, want status/call_x", events[0].Type, events[0].CallID)
	}
	if events[0].Origin == "" {
		t.Error("relayed event missing origin stamp")
	}
}

func TestBridge_SkipsOwnEvents(t *testing.T) {
	f := newBridgeFixture(t)

	local := &fakeSub{id: "local"}
	f.hubA.Subscribe("call_y", local)
	f.bridgeA.Subscribe("call_y")

	// B's relay proves the message crossed Redis.
	witness := &fakeSub{id: "witness"}
	f.hubB.Subscribe("call_y", witness)
	f.bridgeB.Subscribe("call_y")

	publishUntil(t, f.bridgeA, NewStatusEvent("call_y", "active", nil), witness)

	if got := len(local.snapshot()); got != 0 {
		t.Errorf("origin node rebroadcast its own event %d times, want 0", got)
	}
}

func TestBridge_UnsubscribeStopsRelay(t *testing.T) {
	f := newBridgeFixture(t)

	remote := &fakeSub{id: "remote"}
	f.hubB.Subscribe("call_z", remote)
	f.bridgeB.Subscribe("call_z")

	publishUntil(t, f.bridgeA, NewStatusEvent("call_z", "active", nil), remote)

	f.bridgeB.Unsubscribe("call_z")
	time.Sleep(50 * time.Millisecond)

	late := &fakeSub{id: "late"}
	f.hubB.Subscribe("call_z", late)
	for i := 0; i < 3; i++ {
		if err := f.bridgeA.Publish(context.Background(), NewStatusEvent("call_z", "ended", nil)); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}
	time.Sleep(100 * time.Millisecond)

	if got := len(late.snapshot()); got != 0 {
		t.Errorf("relay delivered %d events after Unsubscribe, want 0", got)
	}
}

func TestBridge_SubscribeIsIdempotent(t *testing.T) {
	f := newBridgeFixture(t)

	probe := &fakeSub{id: "probe"}
	f.hubB.Subscribe("call_w", probe)
	f.bridgeB.Subscribe("call_w")
	f.bridgeB.Subscribe("call_w")

	publishUntil(t, f.bridgeA, NewStatusEvent("call_w", "probe", nil), probe)

	solo := &fakeSub{id: "solo"}
	f.hubB.Subscribe("call_w", solo)
	if err := f.bridgeA.Publish(context.Background(), NewStatusEvent("call_w", "solo", nil)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(solo.snapshot()) == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	if got := len(solo.snapshot()); got != 1 {
		t.Errorf("duplicate subscription delivered %d events, want exactly 1", got)
	}
}
