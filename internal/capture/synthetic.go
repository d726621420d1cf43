package capture

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/EduardoFdeM/pitchai-backend/internal/audio"
)

var errDeviceClosed = errors.New("capture: device closed")

// SyntheticConfig configures a generated audio endpoint.
type SyntheticConfig struct {
	Name string

	// Format of the generated stream. Zero value means canonical
	// 16kHz mono.
	Format Format

	// ToneHz selects a sine tone; zero generates silence.
	ToneHz float64

	// Amplitude in [0,1] of full scale. Defaults to 0.3 when a tone is
	// requested.
	Amplitude float64

	// Paced makes ReadBlock deliver at real-time cadence. Unpaced devices
	// deliver as fast as the caller reads, which tests rely on.
	Paced bool
}

// SyntheticDevice generates PCM locally. It backs two roles: a stand-in
// primary when no capture input is configured, and the silent fallback a
// failed source is demoted to.
type SyntheticDevice struct {
	cfg SyntheticConfig

	mu     sync.Mutex
	opened bool
	closed bool
	phase  float64
	next   time.Time
}

// NewSyntheticDevice creates a generator from cfg, defaulting the zero
// fields.
func NewSyntheticDevice(cfg SyntheticConfig) *SyntheticDevice {
	if cfg.Name == "" {
		cfg.Name = "synthetic"
	}
	if cfg.Format.SampleRate == 0 {
		cfg.Format.SampleRate = audio.CanonicalSampleRate
	}
	if cfg.Format.Channels == 0 {
		cfg.Format.Channels = audio.CanonicalChannels
	}
	if cfg.ToneHz > 0 && cfg.Amplitude == 0 {
		cfg.Amplitude = 0.3
	}
	return &SyntheticDevice{cfg: cfg}
}

func (d *SyntheticDevice) Open(ctx context.Context) (Format, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return Format{}, errDeviceClosed
	}
	d.opened = true
	d.next = time.Now()
	return d.cfg.Format, nil
}

func (d *SyntheticDevice) ReadBlock(dst []int16) error {
	d.mu.Lock()
	if d.closed || !d.opened {
		d.mu.Unlock()
		return errDeviceClosed
	}
	frames := len(dst) / d.cfg.Format.Channels
	step := 2 * math.Pi * d.cfg.ToneHz / float64(d.cfg.Format.SampleRate)
	phase := d.phase
	d.phase += step * float64(frames)
	deadline := d.next
	d.next = d.next.Add(time.Duration(frames) * time.Second / time.Duration(d.cfg.Format.SampleRate))
	d.mu.Unlock()

	if d.cfg.ToneHz == 0 {
		for i := range dst {
			dst[i] = 0
		}
	} else {
		scale := d.cfg.Amplitude * 32767
		for f := 0; f < frames; f++ {
			v := int16(scale * math.Sin(phase+step*float64(f)))
			for ch := 0; ch < d.cfg.Format.Channels; ch++ {
				dst[f*d.cfg.Format.Channels+ch] = v
			}
		}
	}

	if d.cfg.Paced {
		if wait := time.Until(deadline); wait > 0 {
			time.Sleep(wait)
		}
	}

	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return errDeviceClosed
	}
	return nil
}

func (d *SyntheticDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *SyntheticDevice) Name() string {
	return d.cfg.Name
}
