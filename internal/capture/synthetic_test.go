package capture

import (
	"context"
	"testing"
	"time"

	"github.com/EduardoFdeM/pitchai-backend/internal/audio"
)

func TestSyntheticDevice_Defaults(t *testing.T) {
	d := NewSyntheticDevice(SyntheticConfig{})
	f, err := d.Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if f.SampleRate != audio.CanonicalSampleRate || f.Channels != audio.CanonicalChannels {
		t.Errorf("default format = %d/%d, want canonical mono", f.SampleRate, f.Channels)
	}
	if d.Name() != "synthetic" {
		t.Errorf("default name = %q", d.Name())
	}
}

func TestSyntheticDevice_Silence(t *testing.T) {
	d := NewSyntheticDevice(SyntheticConfig{})
	if _, err := d.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	buf := make([]int16, 320)
	for i := range buf {
		buf[i] = 42
	}
	if err := d.ReadBlock(buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	for i, s := range buf {
		if s != 0 {
			t.Fatalf("sample %d = %d, want silence", i, s)
		}
	}
}

func TestSyntheticDevice_ToneHasEnergy(t *testing.T) {
	d := NewSyntheticDevice(SyntheticConfig{ToneHz: 440})
	if _, err := d.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	buf := make([]int16, 1600)
	if err := d.ReadBlock(buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	if rms := audio.RMS(buf); rms < 1000 {
		t.Errorf("tone RMS = %.1f, want clearly above the speech gate", rms)
	}
}

func TestSyntheticDevice_PacedCadence(t *testing.T) {
	d := NewSyntheticDevice(SyntheticConfig{Paced: true})
	if _, err := d.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}

	// 3 blocks of 50ms: the first returns immediately, the rest are paced.
	buf := make([]int16, 800)
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := d.ReadBlock(buf); err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("3 paced 50ms blocks returned in %v, pacing is not applied", elapsed)
	}
}

func TestSyntheticDevice_ReadAfterClose(t *testing.T) {
	d := NewSyntheticDevice(SyntheticConfig{})
	if _, err := d.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := d.ReadBlock(make([]int16, 160)); err == nil {
		t.Error("read after close should fail")
	}
	if err := d.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}

func TestSyntheticDevice_StereoFormat(t *testing.T) {
	d := NewSyntheticDevice(SyntheticConfig{
		Format: Format{SampleRate: 48000, Channels: 2},
		ToneHz: 440,
	})
	f, err := d.Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if f.SampleRate != 48000 || f.Channels != 2 {
		t.Fatalf("format = %+v", f)
	}

	buf := make([]int16, 960)
	if err := d.ReadBlock(buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	// Interleaved stereo frames carry the same value on both channels.
	for i := 0; i < len(buf); i += 2 {
		if buf[i] != buf[i+1] {
			t.Fatalf("frame %d: channels differ (%d vs %d)", i/2, buf[i], buf[i+1])
		}
	}
}
