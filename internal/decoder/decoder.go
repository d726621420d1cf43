// Package decoder turns one window of audio into text with a confidence
// score. Real delegates to a whisper-compatible sidecar over HTTP; Simulated
// manufactures plausible output so the rest of the pipeline works without a
// model. Decode never returns an error: a failed decode is an empty,
// zero-confidence result, counted but not raised, so one bad inference never
// halts the stream.
package decoder

import "context"

// Result is one decoded window.
type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Decoder transforms a window of mono 16-bit samples into a Result.
type Decoder interface {
	Decode(ctx context.Context, samples []int16, sampleRate int) Result

	// IsReal reports whether results come from an actual model.
	IsReal() bool

	// Name identifies the decoder in logs and metrics.
	Name() string
}
