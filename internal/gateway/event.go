package gateway

import (
	"time"

	"github.com/EduardoFdeM/pitchai-backend/internal/audio"
	"github.com/EduardoFdeM/pitchai-backend/internal/transcription"
)

// EventType discriminates the payload carried by an Event.
type EventType string

const (
	// EventChunk announces that an audio block passed through the pipeline.
	// The payload carries metadata only, never raw samples.
	EventChunk EventType = "chunk"
	// EventTranscript carries a decoded transcription chunk.
	EventTranscript EventType = "transcript"
	// EventStatus reports call lifecycle transitions.
	EventStatus EventType = "status"
)

// Event is the envelope delivered to WebSocket and SSE subscribers and
// relayed between replicas over Redis pub/sub.
type Event struct {
	Type        EventType `json:"type"`
	CallID      string    `json:"call_id"`
	EmittedAtMS int64     `json:"emitted_at_ms"`
	// Origin identifies the node that produced the event so the bridge
	// can skip messages it published itself.
	Origin  string `json:"origin,omitempty"`
	Payload any    `json:"payload"`
}

// ChunkPayload describes one captured audio block.
type ChunkPayload struct {
	Source      string `json:"source"`
	TimestampMS int64  `json:"timestamp_ms"`
	DurationMS  int64  `json:"duration_ms"`
	SampleRate  int    `json:"sample_rate"`
	Samples     int    `json:"samples"`
}

// StatusPayload describes a call state transition.
type StatusPayload struct {
	Status string         `json:"status"`
	Detail map[string]any `json:"detail,omitempty"`
}

// NewChunkEvent builds a chunk event from captured audio metadata.
func NewChunkEvent(c audio.Chunk) Event {
	return Event{
		Type:        EventChunk,
		CallID:      c.CallID,
		EmittedAtMS: time.Now().UnixMilli(),
		Payload: ChunkPayload{
			Source:      string(c.Source),
			TimestampMS: c.TimestampMS,
			DurationMS:  c.DurationMS(),
			SampleRate:  c.SampleRate,
			Samples:     len(c.Samples),
		},
	}
}

// NewTranscriptEvent wraps a transcription chunk.
func NewTranscriptEvent(t transcription.Chunk) Event {
	return Event{
		Type:        EventTranscript,
		CallID:      t.CallID,
		EmittedAtMS: time.Now().UnixMilli(),
		Payload:     t,
	}
}

// NewStatusEvent reports a lifecycle change for a call.
func NewStatusEvent(callID, status string, detail map[string]any) Event {
	return Event{
		Type:        EventStatus,
		CallID:      callID,
		EmittedAtMS: time.Now().UnixMilli(),
		Payload: StatusPayload{
			Status: status,
			Detail: detail,
		},
	}
}
