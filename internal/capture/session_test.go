package capture

import (
	"errors"
	"testing"
	"time"

	"github.com/EduardoFdeM/pitchai-backend/internal/audio"
)

func canonicalScriptPair() map[audio.Source]Device {
	return map[audio.Source]Device{
		audio.SourceMicrophone: newScriptDevice(Format{SampleRate: audio.CanonicalSampleRate, Channels: 1}),
		audio.SourceLoopback:   newScriptDevice(Format{SampleRate: audio.CanonicalSampleRate, Channels: 1}),
	}
}

func TestSession_StartAssignsCallID(t *testing.T) {
	col := &chunkCollector{}
	s := NewSession(SessionConfig{
		Devices:      canonicalScriptPair(),
		BlockSamples: 160,
		Logger:       quietLogger(),
	})
	s.AddCallback(col.add)

	id, err := s.Start()
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if id == "" {
		t.Fatal("start must return a call id")
	}
	if s.CallID() != id {
		t.Errorf("CallID() = %q, want %q", s.CallID(), id)
	}

	again, err := s.Start()
	if !errors.Is(err, ErrSessionStarted) {
		t.Errorf("second start: expected ErrSessionStarted, got %v", err)
	}
	if again != id {
		t.Errorf("second start returned %q, want the original id %q", again, id)
	}

	chunks := col.waitFor(t, 10, 2*time.Second)
	s.Stop()

	for i, c := range chunks {
		if c.CallID != id {
			t.Fatalf("chunk %d carries call id %q, want %q", i, c.CallID, id)
		}
	}
}

func TestSession_SourcesStayWithinDriftTolerance(t *testing.T) {
	devices := map[audio.Source]Device{
		audio.SourceMicrophone: NewSyntheticDevice(SyntheticConfig{
			Name: "mic", ToneHz: 440, Paced: true,
		}),
		audio.SourceLoopback: NewSyntheticDevice(SyntheticConfig{
			Name: "loop", ToneHz: 330, Paced: true,
		}),
	}
	col := &chunkCollector{}
	s := NewSession(SessionConfig{
		Devices:      devices,
		BlockSamples: 80,
		Logger:       quietLogger(),
	})
	s.AddCallback(col.add)

	if _, err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(150 * time.Millisecond)
	m := s.Metrics()
	s.Stop()

	if m.T0DeltaMS > DriftToleranceMS {
		t.Errorf("t0 delta %dms exceeds tolerance %dms", m.T0DeltaMS, DriftToleranceMS)
	}
	if m.SyncDriftMS > DriftToleranceMS {
		t.Errorf("sync drift %dms exceeds tolerance %dms", m.SyncDriftMS, DriftToleranceMS)
	}

	// Per-source timestamps are non-decreasing and advance one block at a
	// time.
	perSource := map[audio.Source][]audio.Chunk{}
	for _, c := range col.snapshot() {
		perSource[c.Source] = append(perSource[c.Source], c)
	}
	for src, chunks := range perSource {
		for i := 1; i < len(chunks); i++ {
			if chunks[i].TimestampMS < chunks[i-1].TimestampMS {
				t.Errorf("%s: timestamp went backwards at %d", src, i)
			}
			if got := chunks[i].TimestampMS - chunks[i-1].TimestampMS; got != 5 {
				t.Errorf("%s: block step %dms, want 5ms", src, got)
			}
		}
	}
}

func TestSession_FallbackIsolation(t *testing.T) {
	mic := newScriptDevice(Format{SampleRate: audio.CanonicalSampleRate, Channels: 1})
	mic.failAfter = 5
	devices := map[audio.Source]Device{
		audio.SourceMicrophone: mic,
		audio.SourceLoopback: NewSyntheticDevice(SyntheticConfig{
			Name: "loop", ToneHz: 330, Paced: true,
		}),
	}
	col := &chunkCollector{}
	s := NewSession(SessionConfig{
		Devices:      devices,
		BlockSamples: 160,
		Logger:       quietLogger(),
	})
	s.AddCallback(col.add)

	if _, err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	var micChunks, loopChunks []audio.Chunk
	for time.Now().Before(deadline) {
		micChunks, loopChunks = nil, nil
		for _, c := range col.snapshot() {
			if c.Source == audio.SourceMicrophone {
				micChunks = append(micChunks, c)
			} else {
				loopChunks = append(loopChunks, c)
			}
		}
		if len(micChunks) >= 8 && len(loopChunks) >= 8 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	m := s.Metrics()
	s.Stop()

	if len(micChunks) < 8 || len(loopChunks) < 8 {
		t.Fatalf("expected 8 chunks per source, got mic=%d loop=%d", len(micChunks), len(loopChunks))
	}

	if len(m.FallbackSources) != 1 || m.FallbackSources[0] != string(audio.SourceMicrophone) {
		t.Errorf("fallback sources = %v, want [microphone]", m.FallbackSources)
	}

	// The healthy source's timeline is unaffected by the other's demotion.
	t0 := loopChunks[0].TimestampMS
	for i, c := range loopChunks[:8] {
		if want := t0 + int64(i)*10; c.TimestampMS != want {
			t.Errorf("loopback chunk %d: timestamp %d, want %d", i, c.TimestampMS, want)
		}
	}

	// The demoted source keeps its arithmetic timeline too.
	t0 = micChunks[0].TimestampMS
	for i, c := range micChunks[:8] {
		if want := t0 + int64(i)*10; c.TimestampMS != want {
			t.Errorf("microphone chunk %d: timestamp %d, want %d", i, c.TimestampMS, want)
		}
	}
}

func TestSession_MetricsShape(t *testing.T) {
	s := NewSession(SessionConfig{
		Devices:      canonicalScriptPair(),
		BlockSamples: 160,
		Logger:       quietLogger(),
	})
	col := &chunkCollector{}
	s.AddCallback(col.add)

	if _, err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	col.waitFor(t, 4, 2*time.Second)

	m := s.Metrics()
	if !m.Active {
		t.Error("session should be active before stop")
	}
	if m.ChunksEmitted == 0 {
		t.Error("chunks emitted should be counted")
	}
	for _, src := range audio.Sources() {
		if m.SampleRates[string(src)] != audio.CanonicalSampleRate {
			t.Errorf("%s: sample rate %d", src, m.SampleRates[string(src)])
		}
		if m.BufferSizes[string(src)] != 160 {
			t.Errorf("%s: buffer size %d, want 160", src, m.BufferSizes[string(src)])
		}
		if _, ok := m.Sources[string(src)]; !ok {
			t.Errorf("%s: missing per-source metrics", src)
		}
	}

	s.Stop()
	m = s.Metrics()
	if m.Active {
		t.Error("session should be inactive after stop")
	}
	if m.DurationMS < 0 {
		t.Errorf("duration %dms", m.DurationMS)
	}
}

func TestSession_StopIdempotent(t *testing.T) {
	s := NewSession(SessionConfig{
		Devices:      canonicalScriptPair(),
		BlockSamples: 160,
		Logger:       quietLogger(),
	})

	// Stop before start is a no-op.
	s.Stop()

	s2 := NewSession(SessionConfig{
		Devices:      canonicalScriptPair(),
		BlockSamples: 160,
		Logger:       quietLogger(),
	})
	if _, err := s2.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	s2.Stop()
	s2.Stop()
}
