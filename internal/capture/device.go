// Package capture acquires raw audio from two endpoints (microphone and
// loopback), stamps every block with sample-accurate timestamps and fans the
// resulting chunks out to registered listeners. Device failures demote the
// affected source to a synthetic silence generator instead of ending the
// session.
package capture

import (
	"context"

	"github.com/EduardoFdeM/pitchai-backend/internal/audio"
)

// Format describes the PCM layout a device delivers.
type Format struct {
	SampleRate int
	Channels   int
}

// Device is a single audio endpoint delivering interleaved signed 16-bit PCM.
// Implementations must be safe for one reader at a time.
type Device interface {
	// Open prepares the stream and reports the delivered format.
	Open(ctx context.Context) (Format, error)

	// ReadBlock fills dst completely with interleaved samples in the
	// format reported by Open. It blocks until dst is full or the device
	// fails or is closed.
	ReadBlock(dst []int16) error

	// Close releases the endpoint. Safe to call more than once; pending
	// reads fail after Close.
	Close() error

	// Name identifies the endpoint in logs and metrics.
	Name() string
}

// Tone frequencies for synthetic primaries, distinct per source so decoded
// output is attributable in demos and tests.
const (
	micToneHz      = 440
	loopbackToneHz = 330
)

// DeviceForInput selects the device implementation for one source. An empty
// input string selects a synthetic tone generator so the pipeline runs
// without hardware; anything else is treated as a capture input passed to
// the ffmpeg backend.
func DeviceForInput(binary, backend, input string, src audio.Source) Device {
	if input == "" {
		hz := float64(micToneHz)
		if src == audio.SourceLoopback {
			hz = loopbackToneHz
		}
		return NewSyntheticDevice(SyntheticConfig{
			Name:   "synthetic:" + string(src),
			ToneHz: hz,
			Paced:  true,
		})
	}
	return NewFFmpegDevice(FFmpegConfig{
		Binary:  binary,
		Backend: backend,
		Input:   input,
	})
}
