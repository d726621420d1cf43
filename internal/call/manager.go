package call

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/EduardoFdeM/pitchai-backend/internal/audio"
	"github.com/EduardoFdeM/pitchai-backend/internal/capture"
	"github.com/EduardoFdeM/pitchai-backend/internal/shared"
	"github.com/EduardoFdeM/pitchai-backend/internal/transcription"
)

var (
	// ErrCallActive is returned when StartCall runs while a call is live.
	ErrCallActive = errors.New("call: another call is active")

	// ErrNoActiveCall is returned when StopCall runs with nothing live.
	ErrNoActiveCall = errors.New("call: no active call")
)

const persistTimeout = 5 * time.Second

// SessionFactory builds a fresh capture session for each call. Devices are
// opened by the session itself at Start.
type SessionFactory func() *capture.Session

// EventSink receives live call events for fan-out to subscribers. All methods
// must be non-blocking; implementations buffer or drop.
type EventSink interface {
	CallStatus(callID string, status Status, detail map[string]any)
	ChunkMeta(c audio.Chunk)
	Transcript(t transcription.Chunk)
}

// LiveMetrics merges both halves of the pipeline for an active call.
type LiveMetrics struct {
	Capture       capture.SessionMetrics       `json:"capture"`
	Transcription transcription.ServiceMetrics `json:"transcription"`
}

type activeCall struct {
	id   string
	sess *capture.Session
	rec  *CallRecord
}

// Manager owns the call lifecycle. At most one call runs at a time: starting
// a second one fails with ErrCallActive. Each start builds a new capture
// session, binds the shared transcription service to it and opens a call
// record; stop tears the pair down and finalizes the record.
type Manager struct {
	factory SessionFactory
	svc     *transcription.Service
	store   *Store
	metrics *MetricsStore
	events  EventSink
	logger  *slog.Logger

	mu     sync.Mutex
	active *activeCall
}

// NewManager wires the manager into the transcription service's observer
// chain. metrics and events may be nil.
func NewManager(factory SessionFactory, svc *transcription.Service, store *Store, metrics *MetricsStore, events EventSink, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		factory: factory,
		svc:     svc,
		store:   store,
		metrics: metrics,
		events:  events,
		logger:  logger.With("component", "call"),
	}
	svc.AddObserver(m.onTranscript)
	return m
}

// StartCall begins capture and transcription for a new call and opens its
// record. The record snapshot it returns is safe to serialize.
func (m *Manager) StartCall(ctx context.Context) (*CallRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return nil, ErrCallActive
	}

	sess := m.factory()
	id, err := sess.Start()
	if err != nil {
		sess.Stop()
		return nil, fmt.Errorf("start capture: %w", err)
	}

	if err := m.svc.Start(ctx, id); err != nil {
		sess.Stop()
		return nil, fmt.Errorf("start transcription: %w", err)
	}

	// Wired only once the service consumes, so the handful of blocks captured
	// while the decoder resolves are skipped rather than queued as stale.
	sess.AddCallback(func(c audio.Chunk) {
		if err := m.svc.Ingest(c); err != nil {
			return
		}
		if m.events != nil {
			m.events.ChunkMeta(c)
		}
	})

	svcm := m.svc.Metrics()
	rec := &CallRecord{
		ID:          id,
		Status:      StatusActive,
		Decoder:     svcm.Decoder,
		DecoderReal: svcm.DecoderReal,
		StartedAt:   time.Now(),
	}
	if err := m.store.Create(ctx, rec); err != nil {
		if stopErr := m.svc.Stop(ctx); stopErr != nil {
			m.logger.Warn("transcription stop during rollback failed", "error", stopErr)
		}
		sess.Stop()
		return nil, fmt.Errorf("persist call record: %w", err)
	}

	if m.metrics != nil {
		if err := m.metrics.MarkLive(ctx, id); err != nil {
			m.logger.Warn("failed to mark call live in redis", "call_id", id, "error", err)
		}
	}
	if m.events != nil {
		m.events.CallStatus(id, StatusActive, map[string]any{
			"decoder":      rec.Decoder,
			"decoder_real": rec.DecoderReal,
		})
	}

	m.active = &activeCall{id: id, sess: sess, rec: rec}
	m.logger.Info("call started", "call_id", id, "decoder", rec.Decoder)

	snapshot := *rec
	return &snapshot, nil
}

// StopCall stops capture first so producers quiesce, then the transcription
// service drains and flushes, and finally the record absorbs the closing
// metrics of both halves. An empty id stops whichever call is active; a
// non-empty id must match it.
func (m *Manager) StopCall(ctx context.Context, id string) (*CallRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return nil, ErrNoActiveCall
	}
	if id != "" && id != m.active.id {
		return nil, shared.ErrNotFound
	}
	a := m.active

	a.sess.Stop()
	if err := m.svc.Stop(ctx); err != nil {
		m.logger.Warn("transcription stop failed", "call_id", a.id, "error", err)
	}

	capm := a.sess.Metrics()
	svcm := m.svc.Metrics()

	now := time.Now()
	rec := a.rec
	rec.Status = StatusEnded
	rec.EndedAt = &now
	rec.DurationMS = capm.DurationMS
	rec.ChunksEmitted = capm.ChunksEmitted
	rec.ChunksProcessed = svcm.ChunksProcessed
	rec.DroppedChunks = svcm.DroppedChunks
	rec.AvgLatencyMS = svcm.AvgLatencyMS
	rec.MaxSyncDriftMS = capm.MaxSyncDriftMS
	rec.FallbackSources = shared.StringSlice(capm.FallbackSources)

	if err := m.store.Update(ctx, rec); err != nil {
		m.logger.Error("failed to finalize call record", "call_id", a.id, "error", err)
	}

	if m.metrics != nil {
		summary := map[string]int64{
			"duration_ms":       rec.DurationMS,
			"chunks_emitted":    rec.ChunksEmitted,
			"dropped_chunks":    rec.DroppedChunks,
			"max_sync_drift_ms": rec.MaxSyncDriftMS,
		}
		if err := m.metrics.WriteSummary(ctx, a.id, summary); err != nil {
			m.logger.Warn("failed to mirror call summary", "call_id", a.id, "error", err)
		}
		if err := m.metrics.MarkEnded(ctx, a.id); err != nil {
			m.logger.Warn("failed to mark call ended in redis", "call_id", a.id, "error", err)
		}
	}
	if m.events != nil {
		m.events.CallStatus(a.id, StatusEnded, map[string]any{
			"duration_ms":      rec.DurationMS,
			"chunks_processed": rec.ChunksProcessed,
		})
	}

	m.active = nil
	m.logger.Info("call stopped",
		"call_id", a.id, "duration_ms", rec.DurationMS,
		"chunks_processed", rec.ChunksProcessed, "dropped", rec.DroppedChunks)

	snapshot := *rec
	return &snapshot, nil
}

// ActiveCallID reports the live call, if any.
func (m *Manager) ActiveCallID() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return "", false
	}
	return m.active.id, true
}

// LiveMetrics snapshots both pipeline halves for the given active call.
// Ended or unknown calls return shared.ErrNotFound; their final numbers live
// on the call record.
func (m *Manager) LiveMetrics(id string) (*LiveMetrics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil || m.active.id != id {
		return nil, shared.ErrNotFound
	}
	return &LiveMetrics{
		Capture:       m.active.sess.Metrics(),
		Transcription: m.svc.Metrics(),
	}, nil
}

// RefreshDecoder re-resolves the decoder for the active call and records the
// outcome on the call record.
func (m *Manager) RefreshDecoder(ctx context.Context, id string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil || m.active.id != id {
		return "", false, shared.ErrNotFound
	}

	name, real, err := m.svc.RefreshDecoder(ctx)
	if err != nil {
		return "", false, err
	}

	rec := m.active.rec
	rec.Decoder = name
	rec.DecoderReal = real
	if err := m.store.Update(ctx, rec); err != nil {
		m.logger.Warn("failed to persist refreshed decoder", "call_id", id, "error", err)
	}
	return name, real, nil
}

// onTranscript runs on the transcription consumer goroutine for every emitted
// chunk: persist non-empty text, mirror counters, fan out.
func (m *Manager) onTranscript(t transcription.Chunk) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if t.Text != "" {
		row := &TranscriptRow{
			CallID:     t.CallID,
			Source:     string(t.Source),
			Speaker:    t.Speaker,
			Text:       t.Text,
			Confidence: t.Confidence,
			TSStartMS:  t.TSStartMS,
			TSEndMS:    t.TSEndMS,
			Final:      t.Final,
		}
		if err := m.store.AppendTranscript(ctx, row); err != nil {
			m.logger.Error("failed to persist transcript chunk", "call_id", t.CallID, "error", err)
		}
	}

	if m.metrics != nil {
		if err := m.metrics.RecordTranscript(ctx, t.CallID, t.Text == ""); err != nil {
			m.logger.Warn("failed to mirror transcript counters", "call_id", t.CallID, "error", err)
		}
	}
	if m.events != nil {
		m.events.Transcript(t)
	}
}
