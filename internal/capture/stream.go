package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/EduardoFdeM/pitchai-backend/internal/audio"
	"github.com/EduardoFdeM/pitchai-backend/internal/clock"
)

// ErrStreamStarted is returned when Start is called on a stream that already
// ran.
var ErrStreamStarted = errors.New("capture: stream already started")

// State is the lifecycle phase of one capture stream.
type State string

const (
	StateIdle      State = "idle"
	StateOpening   State = "opening"
	StateStreaming State = "streaming"
	StateFallback  State = "fallback"
	StateStopping  State = "stopping"
	StateClosed    State = "closed"
)

const (
	defaultOpenTimeout = 5 * time.Second
	defaultReadTimeout = 2 * time.Second
)

// StreamConfig configures one per-source capture stream.
type StreamConfig struct {
	Source audio.Source
	Device Device

	// BlockSamples is the canonical-rate block length per emitted chunk.
	// Defaults to audio.DefaultBlockSamples (100ms at 16kHz).
	BlockSamples int

	// OpenTimeout bounds the device open attempt. Defaults to 5s.
	OpenTimeout time.Duration

	// ReadTimeout bounds one block read; exceeding it demotes the source
	// to silent fallback. Defaults to 2s.
	ReadTimeout time.Duration

	Anchor *clock.Anchor
	Logger *slog.Logger
}

// StreamMetrics is a read-only snapshot of one stream's counters.
type StreamMetrics struct {
	Source          audio.Source `json:"source"`
	State           State        `json:"state"`
	Device          string       `json:"device"`
	Fallback        bool         `json:"fallback"`
	SampleRate      int          `json:"sample_rate"`
	BlockSamples    int          `json:"block_samples"`
	T0MS            int64        `json:"t0_ms"`
	LastTimestampMS int64        `json:"last_timestamp_ms"`
	SamplesConsumed int64        `json:"samples_consumed"`
	Blocks          int64        `json:"blocks"`
	FallbackBlocks  int64        `json:"fallback_blocks"`
}

// Stream runs the acquisition loop for one source. Timestamps are assigned
// arithmetically from the session anchor and the cumulative sample count,
// never from the time a read happens to return, which keeps cross-source
// drift bounded regardless of scheduler jitter.
type Stream struct {
	source       audio.Source
	device       Device
	blockSamples int
	openTimeout  time.Duration
	readTimeout  time.Duration
	anchor       *clock.Anchor
	logger       *slog.Logger
	emit         func(audio.Chunk)

	mu              sync.Mutex
	state           State
	started         bool
	callID          string
	deviceName      string
	fallback        bool
	t0Set           bool
	t0MS            int64
	lastTS          int64
	samplesConsumed int64
	blocks          int64
	fallbackBlocks  int64

	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// NewStream creates a stream in the Idle state. emit is invoked once per
// captured chunk on the stream's own goroutine; it may be nil.
func NewStream(cfg StreamConfig, emit func(audio.Chunk)) *Stream {
	if cfg.BlockSamples <= 0 {
		cfg.BlockSamples = audio.DefaultBlockSamples
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = defaultOpenTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.Anchor == nil {
		cfg.Anchor = clock.NewAnchor()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Stream{
		source:       cfg.Source,
		device:       cfg.Device,
		blockSamples: cfg.BlockSamples,
		openTimeout:  cfg.OpenTimeout,
		readTimeout:  cfg.ReadTimeout,
		anchor:       cfg.Anchor,
		logger:       cfg.Logger,
		emit:         emit,
		state:        StateIdle,
		deviceName:   cfg.Device.Name(),
		stopChan:     make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start begins acquisition for the given call. Device opening happens
// asynchronously; an open failure demotes the stream to fallback rather than
// surfacing here.
func (s *Stream) Start(callID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrStreamStarted
	}
	s.started = true
	s.callID = callID
	s.state = StateOpening
	go s.run()
	return nil
}

// Stop signals the loop to finish, lets in-flight reads drain and waits for
// the stream to close. Safe to call multiple times.
func (s *Stream) Stop() {
	s.mu.Lock()
	started := s.started
	if !started {
		s.state = StateClosed
	}
	s.mu.Unlock()

	s.stopOnce.Do(func() { close(s.stopChan) })
	if started {
		<-s.done
	}
}

// Metrics returns a snapshot of the stream's counters.
func (s *Stream) Metrics() StreamMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StreamMetrics{
		Source:          s.source,
		State:           s.state,
		Device:          s.deviceName,
		Fallback:        s.fallback,
		SampleRate:      audio.CanonicalSampleRate,
		BlockSamples:    s.blockSamples,
		T0MS:            s.t0MS,
		LastTimestampMS: s.lastTS,
		SamplesConsumed: s.samplesConsumed,
		Blocks:          s.blocks,
		FallbackBlocks:  s.fallbackBlocks,
	}
}

func (s *Stream) run() {
	defer close(s.done)

	dev := s.device
	format, err := s.openDevice(dev)
	if err != nil {
		s.logger.Warn("capture device open failed, falling back to silence",
			"source", s.source, "device", dev.Name(), "error", err)
		_ = dev.Close()
		dev, format = s.demote()
	} else {
		s.setState(StateStreaming)
	}

	p := s.startPump(dev, format)
	for {
		select {
		case <-s.stopChan:
			s.shutdown(dev, p, format)
			return

		case block := <-p.blocks:
			s.emitBlock(block, format)

		case err := <-p.errs:
			if s.stopRequested() {
				s.shutdown(dev, p, format)
				return
			}
			s.logger.Warn("capture read failed, falling back to silence",
				"source", s.source, "device", dev.Name(), "error", err)
			_ = dev.Close()
			close(p.stop)
			dev, format = s.demote()
			p = s.startPump(dev, format)

		case <-time.After(s.readTimeout):
			if s.inFallback() {
				continue
			}
			s.logger.Warn("capture read timed out, falling back to silence",
				"source", s.source, "device", dev.Name(), "timeout", s.readTimeout)
			_ = dev.Close()
			close(p.stop)
			dev, format = s.demote()
			p = s.startPump(dev, format)
		}
	}
}

func (s *Stream) openDevice(dev Device) (Format, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.openTimeout)
	defer cancel()
	return dev.Open(ctx)
}

// demote swaps in a paced silence generator so cadence and timestamp
// arithmetic continue uninterrupted.
func (s *Stream) demote() (Device, Format) {
	dev := NewSyntheticDevice(SyntheticConfig{
		Name:  "fallback:" + string(s.source),
		Paced: true,
	})
	format, _ := dev.Open(context.Background())

	s.mu.Lock()
	s.fallback = true
	s.deviceName = dev.Name()
	if s.state != StateStopping && s.state != StateClosed {
		s.state = StateFallback
	}
	s.mu.Unlock()
	return dev, format
}

type pump struct {
	blocks chan []int16
	errs   chan error
	stop   chan struct{}
}

func (s *Stream) startPump(dev Device, format Format) *pump {
	p := &pump{
		blocks: make(chan []int16, 1),
		errs:   make(chan error, 1),
		stop:   make(chan struct{}),
	}
	native := s.nativeBlockLen(format)
	go func() {
		for {
			buf := make([]int16, native)
			if err := dev.ReadBlock(buf); err != nil {
				select {
				case p.errs <- err:
				case <-p.stop:
				}
				return
			}
			select {
			case p.blocks <- buf:
			case <-p.stop:
				return
			}
		}
	}()
	return p
}

// nativeBlockLen scales the canonical block length to the device's native
// format so every block still spans the same wall-clock duration.
func (s *Stream) nativeBlockLen(format Format) int {
	frames := s.blockSamples * format.SampleRate / audio.CanonicalSampleRate
	if frames <= 0 {
		frames = s.blockSamples
	}
	return frames * format.Channels
}

func (s *Stream) emitBlock(block []int16, format Format) {
	samples := block
	if format.Channels > 1 {
		samples = audio.DownmixInt16(samples, format.Channels)
	}
	if format.SampleRate != audio.CanonicalSampleRate {
		samples = audio.ResampleInt16(samples, format.SampleRate, audio.CanonicalSampleRate)
	}
	samples = s.normalizeLen(samples)

	s.mu.Lock()
	if !s.t0Set {
		s.t0Set = true
		s.t0MS = s.anchor.NowMS()
	}
	ts := s.t0MS + s.samplesConsumed*1000/int64(audio.CanonicalSampleRate)
	s.samplesConsumed += int64(len(samples))
	s.lastTS = ts
	s.blocks++
	if s.fallback {
		s.fallbackBlocks++
	}
	callID := s.callID
	s.mu.Unlock()

	if s.emit == nil {
		return
	}
	s.emit(audio.Chunk{
		CallID:      callID,
		Source:      s.source,
		TimestampMS: ts,
		Samples:     samples,
		SampleRate:  audio.CanonicalSampleRate,
		Channels:    audio.CanonicalChannels,
	})
}

// normalizeLen pins the converted block to the configured length so rate
// conversions that round down never produce a malformed chunk.
func (s *Stream) normalizeLen(samples []int16) []int16 {
	if len(samples) == s.blockSamples {
		return samples
	}
	if len(samples) > s.blockSamples {
		return samples[:s.blockSamples]
	}
	out := make([]int16, s.blockSamples)
	copy(out, samples)
	return out
}

func (s *Stream) shutdown(dev Device, p *pump, format Format) {
	s.setState(StateStopping)
	_ = dev.Close()
	close(p.stop)

	// Drain a block that was already captured before the stop signal.
	select {
	case block := <-p.blocks:
		s.emitBlock(block, format)
	default:
	}

	s.setState(StateClosed)
	s.logger.Debug("capture stream stopped", "source", s.source)
}

func (s *Stream) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Stream) stopRequested() bool {
	select {
	case <-s.stopChan:
		return true
	default:
		return false
	}
}

func (s *Stream) inFallback() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fallback
}
