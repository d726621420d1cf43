package transcription

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/EduardoFdeM/pitchai-backend/internal/audio"
	"github.com/EduardoFdeM/pitchai-backend/internal/decoder"
	"github.com/EduardoFdeM/pitchai-backend/internal/ingest"
	"github.com/EduardoFdeM/pitchai-backend/internal/model"
)

var (
	// ErrServiceRunning is returned when Start is called on a bound service.
	ErrServiceRunning = errors.New("transcription: service already running")

	// ErrServiceStopped is returned when Stop is called with nothing bound.
	ErrServiceStopped = errors.New("transcription: service not running")
)

const (
	defaultWindow    = 3 * time.Second
	defaultOverlap   = 500 * time.Millisecond
	defaultMinDecode = 500 * time.Millisecond
)

// DecoderResolver supplies the decoder a session runs with.
type DecoderResolver interface {
	Resolve(ctx context.Context, modelName string) (decoder.Decoder, error)
}

// Config tunes the sliding window. Window length and overlap are tunable
// configuration, not contracts; the defaults are 3s windows sliding by 2.5s.
type Config struct {
	Window    time.Duration
	Overlap   time.Duration
	MinDecode time.Duration

	// Model requested from the resolver at Start.
	Model string

	// SimulatedSeed fixes the simulated decoder's sequence. Zero seeds
	// from the clock.
	SimulatedSeed uint64

	QueueCapacity int
	BlockSamples  int
	Logger        *slog.Logger
}

// sourceWindow is the accumulation state for one source, owned exclusively by
// the consumer goroutine.
type sourceWindow struct {
	buf           []int16
	totalAppended int64
	t0MS          int64
	t0Set         bool
}

// Service is the single logical consumer between the ingest queue and the
// transcript observers.
type Service struct {
	resolver      DecoderResolver
	queue         *ingest.Queue
	logger        *slog.Logger
	blockSamples  int
	windowSamples int
	slideSamples  int
	minSamples    int
	modelName     string
	simulatedSeed uint64

	mu              sync.Mutex
	running         bool
	callID          string
	dec             decoder.Decoder
	windows         map[audio.Source]*sourceWindow
	observers       []func(Chunk)
	chunksProcessed int64
	emptyChunks     int64
	decodedWindows  int64
	totalLatencyMS  int64
	lastLatencyMS   int64
	rejectedChunks  int64

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService builds a stopped service. The ingest queue is owned here: the
// capture side feeds it through Ingest and the consumer drains it.
func NewService(resolver DecoderResolver, cfg Config) *Service {
	if cfg.Window <= 0 {
		cfg.Window = defaultWindow
	}
	if cfg.Overlap <= 0 {
		cfg.Overlap = defaultOverlap
	}
	if cfg.Overlap >= cfg.Window {
		cfg.Overlap = cfg.Window / 2
	}
	if cfg.MinDecode <= 0 {
		cfg.MinDecode = defaultMinDecode
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.BlockSamples <= 0 {
		cfg.BlockSamples = audio.DefaultBlockSamples
	}

	rate := audio.CanonicalSampleRate
	windowSamples := int(cfg.Window.Seconds() * float64(rate))
	overlapSamples := int(cfg.Overlap.Seconds() * float64(rate))
	return &Service{
		resolver:      resolver,
		queue:         ingest.NewQueue(cfg.QueueCapacity, cfg.BlockSamples),
		logger:        cfg.Logger,
		blockSamples:  cfg.BlockSamples,
		windowSamples: windowSamples,
		slideSamples:  windowSamples - overlapSamples,
		minSamples:    int(cfg.MinDecode.Seconds() * float64(rate)),
		modelName:     cfg.Model,
		simulatedSeed: cfg.SimulatedSeed,
		windows:       make(map[audio.Source]*sourceWindow, 2),
	}
}

// AddObserver registers a listener for every emitted transcript chunk.
// Observers run on the consumer goroutine, so chunks arrive in window order.
func (s *Service) AddObserver(fn func(Chunk)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// Ingest validates and enqueues one captured chunk. It never blocks: a full
// queue evicts its oldest entry, a malformed chunk is rejected and counted.
func (s *Service) Ingest(c audio.Chunk) error {
	if err := s.queue.Push(c); err != nil {
		s.mu.Lock()
		s.rejectedChunks++
		s.mu.Unlock()
		return err
	}
	return nil
}

// Start binds the service to a call. The decoder is resolved exactly once
// here; when the resolver reports unavailability the simulated decoder takes
// over transparently.
func (s *Service) Start(ctx context.Context, callID string) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrServiceRunning
	}
	s.running = true
	s.callID = callID
	s.windows = make(map[audio.Source]*sourceWindow, 2)
	s.chunksProcessed = 0
	s.emptyChunks = 0
	s.decodedWindows = 0
	s.totalLatencyMS = 0
	s.lastLatencyMS = 0
	s.rejectedChunks = 0
	s.mu.Unlock()

	// Discard anything a previous call left behind.
	for {
		if _, ok := s.queue.TryPop(); !ok {
			break
		}
	}

	dec := s.resolveDecoder(ctx)
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	s.dec = dec
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go s.consume(runCtx, done)
	s.logger.Info("transcription started",
		"call_id", callID, "decoder", dec.Name(), "real", dec.IsReal(),
		"window_samples", s.windowSamples, "slide_samples", s.slideSamples)
	return nil
}

func (s *Service) resolveDecoder(ctx context.Context) decoder.Decoder {
	dec, err := s.resolver.Resolve(ctx, s.modelName)
	if err != nil {
		if errors.Is(err, model.ErrUnavailable) {
			s.logger.Info("real decoder unavailable, using simulated", "reason", err)
		} else {
			s.logger.Warn("decoder resolution failed, using simulated", "error", err)
		}
		seed := s.simulatedSeed
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		return decoder.NewSimulated(seed)
	}
	return dec
}

// RefreshDecoder re-resolves the decoder mid-call, picking up a sidecar that
// came online (or went away) since Start. The swap is atomic with respect to
// window decodes.
func (s *Service) RefreshDecoder(ctx context.Context) (name string, real bool, err error) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return "", false, ErrServiceStopped
	}
	s.mu.Unlock()

	dec := s.resolveDecoder(ctx)

	s.mu.Lock()
	s.dec = dec
	s.mu.Unlock()

	s.logger.Info("decoder refreshed", "decoder", dec.Name(), "real", dec.IsReal())
	return dec.Name(), dec.IsReal(), nil
}

// Stop unbinds the service: the consumer drains what the queue still holds,
// partially filled windows are flushed as final (possibly short) windows and
// the counters freeze. The given context bounds the flush decodes.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrServiceStopped
	}
	cancel := s.cancel
	done := s.done
	id := s.callID
	s.mu.Unlock()

	cancel()
	<-done

	// Producers are stopped by now; drain what is left, then flush.
	for {
		c, ok := s.queue.TryPop()
		if !ok {
			break
		}
		s.process(ctx, c)
	}
	s.flush(ctx)

	s.mu.Lock()
	s.running = false
	processed := s.chunksProcessed
	s.mu.Unlock()

	s.logger.Info("transcription stopped", "call_id", id, "chunks_processed", processed)
	return nil
}

// Metrics returns a snapshot of the pipeline counters.
func (s *Service) Metrics() ServiceMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := ServiceMetrics{
		CallID:          s.callID,
		Running:         s.running,
		ChunksProcessed: s.chunksProcessed,
		EmptyChunks:     s.emptyChunks,
		LastLatencyMS:   s.lastLatencyMS,
		BufferSizes:     make(map[string]int, 2),
		SampleRates:     make(map[string]int, 2),
		SamplesConsumed: make(map[string]int64, 2),
		QueueDepth:      s.queue.Len(),
		DroppedChunks:   s.queue.Dropped(),
		RejectedChunks:  s.rejectedChunks,
	}
	if s.dec != nil {
		m.Decoder = s.dec.Name()
		m.DecoderReal = s.dec.IsReal()
	}
	if s.decodedWindows > 0 {
		m.AvgLatencyMS = float64(s.totalLatencyMS) / float64(s.decodedWindows)
	}
	for src, w := range s.windows {
		m.BufferSizes[string(src)] = len(w.buf)
		m.SampleRates[string(src)] = audio.CanonicalSampleRate
		m.SamplesConsumed[string(src)] = w.totalAppended
	}
	return m
}

func (s *Service) consume(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		c, err := s.queue.Pop(ctx)
		if err != nil {
			return
		}
		s.process(ctx, c)
	}
}

// process appends one chunk to its source window and decodes every window
// that has filled. Validation here mirrors the queue boundary so downstream
// code can rely on well-formed input even if chunks arrive by another path.
func (s *Service) process(ctx context.Context, c audio.Chunk) {
	if err := c.Validate(s.blockSamples); err != nil {
		s.mu.Lock()
		s.rejectedChunks++
		s.mu.Unlock()
		s.logger.Warn("rejected malformed chunk", "source", c.Source, "error", err)
		return
	}

	s.mu.Lock()
	w := s.windows[c.Source]
	if w == nil {
		w = &sourceWindow{t0MS: c.TimestampMS, t0Set: true}
		s.windows[c.Source] = w
	}
	w.buf = append(w.buf, c.Samples...)
	w.totalAppended += int64(len(c.Samples))
	s.mu.Unlock()

	for {
		s.mu.Lock()
		ready := len(w.buf) >= s.windowSamples
		var window []int16
		var startSample int64
		if ready {
			window = make([]int16, s.windowSamples)
			copy(window, w.buf[:s.windowSamples])
			startSample = w.totalAppended - int64(len(w.buf))
			w.buf = w.buf[s.slideSamples:]
		}
		s.mu.Unlock()
		if !ready {
			return
		}
		s.decodeWindow(ctx, c.Source, window, startSample, false)
	}
}

// flush emits the partially filled windows as final chunks instead of
// discarding them.
func (s *Service) flush(ctx context.Context) {
	s.mu.Lock()
	type pending struct {
		src    audio.Source
		window []int16
		start  int64
	}
	var partials []pending
	for src, w := range s.windows {
		if len(w.buf) == 0 {
			continue
		}
		window := make([]int16, len(w.buf))
		copy(window, w.buf)
		partials = append(partials, pending{
			src:    src,
			window: window,
			start:  w.totalAppended - int64(len(w.buf)),
		})
		w.buf = nil
	}
	s.mu.Unlock()

	for _, p := range partials {
		s.decodeWindow(ctx, p.src, p.window, p.start, true)
	}
}

// decodeWindow turns one window into a transcript chunk. Windows shorter than
// the minimum short-circuit to an empty result without touching the decoder.
func (s *Service) decodeWindow(ctx context.Context, src audio.Source, window []int16, startSample int64, final bool) {
	s.mu.Lock()
	dec := s.dec
	w := s.windows[src]
	callID := s.callID
	s.mu.Unlock()
	if w == nil {
		return
	}

	var res decoder.Result
	var latency int64
	decoded := false
	if len(window) >= s.minSamples && dec != nil {
		start := time.Now()
		res = dec.Decode(ctx, window, audio.CanonicalSampleRate)
		latency = time.Since(start).Milliseconds()
		decoded = true
	}

	rate := int64(audio.CanonicalSampleRate)
	chunk := Chunk{
		CallID:     callID,
		Source:     src,
		Speaker:    SpeakerFor(src),
		Text:       res.Text,
		Confidence: res.Confidence,
		TSStartMS:  w.t0MS + startSample*1000/rate,
		TSEndMS:    w.t0MS + (startSample+int64(len(window)))*1000/rate,
		Final:      final,
	}

	s.mu.Lock()
	s.chunksProcessed++
	if decoded {
		s.decodedWindows++
		s.totalLatencyMS += latency
		s.lastLatencyMS = latency
	}
	if chunk.Text == "" {
		s.emptyChunks++
	}
	observers := s.observers
	s.mu.Unlock()

	for _, fn := range observers {
		fn(chunk)
	}
}
