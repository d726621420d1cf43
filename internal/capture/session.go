package capture

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/EduardoFdeM/pitchai-backend/internal/audio"
	"github.com/EduardoFdeM/pitchai-backend/internal/clock"
)

// DriftToleranceMS is the accepted timestamp disagreement between the two
// sources. Exceeding it is reported through metrics and a log line, never as
// an error.
const DriftToleranceMS = 20

// ErrSessionStarted is returned when Start is called twice on one session.
var ErrSessionStarted = errors.New("capture: session already started")

// SessionConfig configures a two-source recording session.
type SessionConfig struct {
	// Devices maps each source to its endpoint. A missing entry gets a
	// silent synthetic device so the pair is always complete.
	Devices map[audio.Source]Device

	BlockSamples int
	OpenTimeout  time.Duration
	ReadTimeout  time.Duration
	Logger       *slog.Logger
}

// SessionMetrics is a read-only snapshot across both streams.
type SessionMetrics struct {
	CallID          string                   `json:"call_id"`
	Active          bool                     `json:"active"`
	DurationMS      int64                    `json:"duration_ms"`
	ChunksEmitted   int64                    `json:"chunks_emitted"`
	SyncDriftMS     int64                    `json:"sync_drift_ms"`
	MaxSyncDriftMS  int64                    `json:"max_sync_drift_ms"`
	T0DeltaMS       int64                    `json:"t0_delta_ms"`
	DriftExceeded   bool                     `json:"drift_exceeded"`
	SampleRates     map[string]int           `json:"sample_rates"`
	BufferSizes     map[string]int           `json:"buffer_sizes"`
	FallbackSources []string                 `json:"fallback_sources"`
	Sources         map[string]StreamMetrics `json:"sources"`
}

// Session owns the microphone and loopback streams for one call. It assigns
// the call_id every chunk carries, aggregates drift metrics and fans chunks
// out to registered listeners in per-source arrival order.
type Session struct {
	logger  *slog.Logger
	anchor  *clock.Anchor
	streams map[audio.Source]*Stream

	mu          sync.Mutex
	callID      string
	callbacks   []func(audio.Chunk)
	started     bool
	stopped     bool
	startedAt   time.Time
	durationMS  int64
	maxDrift    int64
	driftWarned bool
	chunks      int64
}

// NewSession builds the stream pair. Acquisition does not begin until Start.
func NewSession(cfg SessionConfig) *Session {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Session{
		logger:  cfg.Logger,
		anchor:  clock.NewAnchor(),
		streams: make(map[audio.Source]*Stream, 2),
	}
	for _, src := range audio.Sources() {
		dev := cfg.Devices[src]
		if dev == nil {
			dev = NewSyntheticDevice(SyntheticConfig{
				Name:  "silence:" + string(src),
				Paced: true,
			})
		}
		s.streams[src] = NewStream(StreamConfig{
			Source:       src,
			Device:       dev,
			BlockSamples: cfg.BlockSamples,
			OpenTimeout:  cfg.OpenTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			Anchor:       s.anchor,
			Logger:       cfg.Logger,
		}, s.dispatch)
	}
	return s
}

// AddCallback registers a listener invoked once per emitted chunk. Delivery
// order per source is arrival order; no ordering holds between sources.
func (s *Session) AddCallback(fn func(audio.Chunk)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.callbacks = append(s.callbacks, fn)
	s.mu.Unlock()
}

// Start allocates the call_id and opens both streams. The id is returned
// immediately; device opening continues in the background and failures demote
// the affected source instead of failing the session.
func (s *Session) Start() (string, error) {
	s.mu.Lock()
	if s.started {
		id := s.callID
		s.mu.Unlock()
		return id, ErrSessionStarted
	}
	s.started = true
	s.startedAt = time.Now()
	s.callID = uuid.NewString()
	id := s.callID
	s.mu.Unlock()

	for _, st := range s.streams {
		if err := st.Start(id); err != nil {
			s.logger.Error("capture stream start failed", "call_id", id, "error", err)
		}
	}
	s.logger.Info("capture session started", "call_id", id)
	return id, nil
}

// Stop closes both streams, waits for their loops to drain and finalizes the
// session duration. It is idempotent and never fails.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.stopped = true
		s.mu.Unlock()
		return
	}
	s.stopped = true
	startedAt := s.startedAt
	id := s.callID
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, st := range s.streams {
		wg.Add(1)
		go func(st *Stream) {
			defer wg.Done()
			st.Stop()
		}(st)
	}
	wg.Wait()

	drift, _ := s.observeDrift()

	s.mu.Lock()
	s.durationMS = time.Since(startedAt).Milliseconds()
	duration := s.durationMS
	s.mu.Unlock()

	s.logger.Info("capture session stopped",
		"call_id", id, "duration_ms", duration, "sync_drift_ms", drift)
}

// CallID returns the id allocated by Start, or "" before Start.
func (s *Session) CallID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callID
}

// Anchor exposes the session clock so consumers can measure emission latency
// against chunk timestamps.
func (s *Session) Anchor() *clock.Anchor {
	return s.anchor
}

// Metrics assembles a snapshot across both streams.
func (s *Session) Metrics() SessionMetrics {
	drift, t0Delta := s.observeDrift()

	s.mu.Lock()
	m := SessionMetrics{
		CallID:         s.callID,
		Active:         s.started && !s.stopped,
		DurationMS:     s.durationMS,
		ChunksEmitted:  s.chunks,
		SyncDriftMS:    drift,
		MaxSyncDriftMS: s.maxDrift,
		T0DeltaMS:      t0Delta,
		DriftExceeded:  s.maxDrift > DriftToleranceMS,
		SampleRates:    make(map[string]int, 2),
		BufferSizes:    make(map[string]int, 2),
		Sources:        make(map[string]StreamMetrics, 2),
	}
	if m.Active {
		m.DurationMS = time.Since(s.startedAt).Milliseconds()
	}
	s.mu.Unlock()

	for src, st := range s.streams {
		sm := st.Metrics()
		m.SampleRates[string(src)] = sm.SampleRate
		m.BufferSizes[string(src)] = sm.BlockSamples
		m.Sources[string(src)] = sm
		if sm.Fallback {
			m.FallbackSources = append(m.FallbackSources, string(src))
		}
	}
	return m
}

// observeDrift compares the two source timelines at the same instant. Each
// stream's head is t0 plus its consumed samples converted to milliseconds, so
// the difference stays near the t0 delta unless one source stalls. The
// maximum observed value is retained and a single warning is logged the first
// time the tolerance is exceeded.
func (s *Session) observeDrift() (drift, t0Delta int64) {
	mic := s.streams[audio.SourceMicrophone].Metrics()
	loop := s.streams[audio.SourceLoopback].Metrics()
	if mic.Blocks == 0 || loop.Blocks == 0 {
		return 0, 0
	}

	micHead := mic.T0MS + mic.SamplesConsumed*1000/int64(audio.CanonicalSampleRate)
	loopHead := loop.T0MS + loop.SamplesConsumed*1000/int64(audio.CanonicalSampleRate)
	drift = absInt64(micHead - loopHead)
	t0Delta = absInt64(mic.T0MS - loop.T0MS)

	s.mu.Lock()
	if drift > s.maxDrift {
		s.maxDrift = drift
	}
	warn := drift > DriftToleranceMS && !s.driftWarned
	if warn {
		s.driftWarned = true
	}
	id := s.callID
	s.mu.Unlock()

	if warn {
		s.logger.Warn("source sync drift above tolerance",
			"call_id", id, "drift_ms", drift, "tolerance_ms", DriftToleranceMS)
	}
	return drift, t0Delta
}

// dispatch runs on a stream goroutine for every captured chunk.
func (s *Session) dispatch(c audio.Chunk) {
	s.mu.Lock()
	s.chunks++
	cbs := s.callbacks
	s.mu.Unlock()

	for _, cb := range cbs {
		cb(c)
	}
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
