// Package transcription consumes the captured chunk stream and turns it into
// transcript chunks, one per completed sliding window per source. Decoding
// runs on a single consumer goroutine, so a slow model delays transcript
// output but never blocks audio capture.
package transcription

import (
	"github.com/EduardoFdeM/pitchai-backend/internal/audio"
)

// Speaker labels derived from the chunk source: the microphone carries the
// agent running the app, the loopback carries the remote customer.
const (
	SpeakerAgent    = "agent"
	SpeakerCustomer = "customer"
)

// Chunk is one decoded segment. Timestamps are derived from the sample
// positions of the window, never re-sampled from the wall clock, so they stay
// consistent with the audio timeline regardless of decode latency. An empty
// Text means no speech was detected, not an error.
type Chunk struct {
	CallID     string       `json:"call_id"`
	Source     audio.Source `json:"source"`
	Speaker    string       `json:"speaker"`
	Text       string       `json:"text"`
	Confidence float64      `json:"confidence"`
	TSStartMS  int64        `json:"ts_start_ms"`
	TSEndMS    int64        `json:"ts_end_ms"`
	Final      bool         `json:"final"`
}

// SpeakerFor maps a capture source to its speaker label.
func SpeakerFor(src audio.Source) string {
	if src == audio.SourceLoopback {
		return SpeakerCustomer
	}
	return SpeakerAgent
}

// ServiceMetrics is a read-only snapshot of the transcription pipeline,
// polled by dashboards and tests.
type ServiceMetrics struct {
	CallID          string           `json:"call_id"`
	Running         bool             `json:"running"`
	Decoder         string           `json:"decoder"`
	DecoderReal     bool             `json:"decoder_real"`
	ChunksProcessed int64            `json:"chunks_processed"`
	EmptyChunks     int64            `json:"empty_chunks"`
	AvgLatencyMS    float64          `json:"avg_latency_ms"`
	LastLatencyMS   int64            `json:"last_latency_ms"`
	BufferSizes     map[string]int   `json:"buffer_sizes"`
	SampleRates     map[string]int   `json:"sample_rates"`
	SamplesConsumed map[string]int64 `json:"samples_consumed"`
	QueueDepth      int              `json:"queue_depth"`
	DroppedChunks   int64            `json:"dropped_chunks"`
	RejectedChunks  int64            `json:"rejected_chunks"`
}
