package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/EduardoFdeM/pitchai-backend/internal/audio"
	"github.com/EduardoFdeM/pitchai-backend/internal/call"
	"github.com/EduardoFdeM/pitchai-backend/internal/transcription"
)

const (
	publishTimeout  = 2 * time.Second
	relayBufferSize = 256
)

// Sink adapts pipeline callbacks into gateway events. Every event reaches
// the local hub synchronously; relay to other replicas runs on its own
// goroutine so a slow Redis never stalls capture.
type Sink struct {
	hub    *Hub
	bridge *Bridge
	logger *slog.Logger

	out       chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// NewSink wires the pipeline to the hub. bridge may be nil; events then
// stay local.
func NewSink(hub *Hub, bridge *Bridge, logger *slog.Logger) *Sink {
	s := &Sink{
		hub:    hub,
		bridge: bridge,
		logger: logger.With("component", "event_sink"),
		out:    make(chan Event, relayBufferSize),
		done:   make(chan struct{}),
	}
	if bridge != nil {
		go s.publishLoop()
	}
	return s
}

func (s *Sink) CallStatus(callID string, status call.Status, detail map[string]any) {
	s.dispatch(NewStatusEvent(callID, string(status), detail))
}

func (s *Sink) ChunkMeta(c audio.Chunk) {
	s.dispatch(NewChunkEvent(c))
}

func (s *Sink) Transcript(t transcription.Chunk) {
	s.dispatch(NewTranscriptEvent(t))
}

// Close stops the relay loop. Local hub delivery keeps working.
func (s *Sink) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

func (s *Sink) dispatch(ev Event) {
	s.hub.Broadcast(ev)
	if s.bridge == nil {
		return
	}
	select {
	case s.out <- ev:
	default:
		s.logger.Warn("relay buffer full, event dropped", "call_id", ev.CallID, "type", ev.Type)
	}
}

func (s *Sink) publishLoop() {
	for {
		select {
		case ev := <-s.out:
			ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			err := s.bridge.Publish(ctx, ev)
			cancel()
			if err != nil {
				s.logger.Warn("event relay publish failed", "call_id", ev.CallID, "type", ev.Type, "error", err)
			}
		case <-s.done:
			return
		}
	}
}
