package audio

import (
	"errors"
	"testing"
)

func validChunk() Chunk {
	return Chunk{
		CallID:      "call_test",
		Source:      SourceMicrophone,
		TimestampMS: 0,
		Samples:     make([]int16, DefaultBlockSamples),
		SampleRate:  CanonicalSampleRate,
		Channels:    CanonicalChannels,
	}
}

func TestSource_Valid(t *testing.T) {
	tests := []struct {
		source Source
		want   bool
	}{
		{SourceMicrophone, true},
		{SourceLoopback, true},
		{Source("invalid"), false},
		{Source(""), false},
		{Source("Microphone"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.source), func(t *testing.T) {
			if got := tt.source.Valid(); got != tt.want {
				t.Errorf("Valid(%q) = %v, want %v", tt.source, got, tt.want)
			}
		})
	}
}

func TestSources_Order(t *testing.T) {
	sources := Sources()
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if sources[0] != SourceMicrophone || sources[1] != SourceLoopback {
		t.Errorf("unexpected source order: %v", sources)
	}
}

func TestChunk_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Chunk)
		wantErr error
	}{
		{
			name:    "valid chunk",
			mutate:  func(c *Chunk) {},
			wantErr: nil,
		},
		{
			name:    "invalid source",
			mutate:  func(c *Chunk) { c.Source = "speaker" },
			wantErr: ErrInvalidSource,
		},
		{
			name:    "empty source",
			mutate:  func(c *Chunk) { c.Source = "" },
			wantErr: ErrInvalidSource,
		},
		{
			name:    "empty samples",
			mutate:  func(c *Chunk) { c.Samples = nil },
			wantErr: ErrMalformedBlock,
		},
		{
			name:    "wrong block size",
			mutate:  func(c *Chunk) { c.Samples = make([]int16, 100) },
			wantErr: ErrMalformedBlock,
		},
		{
			name:    "zero sample rate",
			mutate:  func(c *Chunk) { c.SampleRate = 0 },
			wantErr: ErrMalformedBlock,
		},
		{
			name:    "stereo chunk",
			mutate:  func(c *Chunk) { c.Channels = 2 },
			wantErr: ErrMalformedBlock,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validChunk()
			tt.mutate(&c)
			err := c.Validate(DefaultBlockSamples)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestChunk_DurationMS(t *testing.T) {
	c := validChunk()
	if d := c.DurationMS(); d != 100 {
		t.Errorf("1600 samples at 16kHz should be 100ms, got %d", d)
	}

	c.Samples = make([]int16, 16000)
	if d := c.DurationMS(); d != 1000 {
		t.Errorf("16000 samples at 16kHz should be 1000ms, got %d", d)
	}

	c.SampleRate = 0
	if d := c.DurationMS(); d != 0 {
		t.Errorf("zero rate should yield 0 duration, got %d", d)
	}
}
