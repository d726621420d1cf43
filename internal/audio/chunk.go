package audio

import (
	"errors"
	"fmt"
)

const (
	// CanonicalSampleRate is the rate every chunk carries once it crosses
	// the capture boundary. Device-native rates are resampled before chunk
	// construction.
	CanonicalSampleRate = 16000

	// CanonicalChannels is always mono past the capture boundary.
	CanonicalChannels = 1

	// DefaultBlockSamples is 100ms of audio at the canonical rate.
	DefaultBlockSamples = 1600
)

var (
	ErrInvalidSource  = errors.New("invalid audio source")
	ErrMalformedBlock = errors.New("malformed sample block")
)

// Source identifies which input a chunk came from. The set is closed:
// anything outside it is rejected at every ingress boundary.
type Source string

const (
	SourceMicrophone Source = "microphone"
	SourceLoopback   Source = "loopback"
)

func (s Source) Valid() bool {
	return s == SourceMicrophone || s == SourceLoopback
}

func (s Source) String() string {
	return string(s)
}

// Sources lists the two valid sources in a stable order.
func Sources() []Source {
	return []Source{SourceMicrophone, SourceLoopback}
}

// Chunk is one fixed-duration block of mono audio from one source. Chunks
// are values: built once inside capture and never mutated afterwards.
type Chunk struct {
	CallID      string
	Source      Source
	TimestampMS int64
	Samples     []int16
	SampleRate  int
	Channels    int
}

// Validate checks the invariants every consumer past the ingest boundary
// relies on: a known source and a well-formed mono block of the expected
// length.
func (c Chunk) Validate(blockSamples int) error {
	if !c.Source.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSource, string(c.Source))
	}
	if len(c.Samples) == 0 || len(c.Samples) != blockSamples {
		return fmt.Errorf("%w: got %d samples, want %d", ErrMalformedBlock, len(c.Samples), blockSamples)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrMalformedBlock, c.SampleRate)
	}
	if c.Channels != CanonicalChannels {
		return fmt.Errorf("%w: %d channels", ErrMalformedBlock, c.Channels)
	}
	return nil
}

// DurationMS is the chunk length on the audio timeline.
func (c Chunk) DurationMS() int64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return int64(len(c.Samples)) * 1000 / int64(c.SampleRate)
}
