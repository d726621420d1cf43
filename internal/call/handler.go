package call

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/EduardoFdeM/pitchai-backend/internal/model"
	"github.com/EduardoFdeM/pitchai-backend/internal/shared"
	"github.com/labstack/echo/v4"
)

// ModelLister exposes the decoder sidecar's model catalog.
type ModelLister interface {
	Models(ctx context.Context) ([]string, error)
}

type Handler struct {
	manager *Manager
	store   *Store
	models  ModelLister
	logger  *slog.Logger
}

func NewHandler(manager *Manager, store *Store, models ModelLister, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		manager: manager,
		store:   store,
		models:  models,
		logger:  logger.With("handler", "call"),
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.StartCall)
	g.GET("", h.ListCalls)
	g.GET("/:id", h.GetCall)
	g.POST("/:id/stop", h.StopCall)
	g.GET("/:id/metrics", h.GetMetrics)
	g.GET("/:id/transcript", h.GetTranscript)
	g.POST("/:id/decoder/refresh", h.RefreshDecoder)
}

type CallResponse struct {
	ID              string   `json:"id"`
	Status          string   `json:"status"`
	Decoder         string   `json:"decoder"`
	DecoderReal     bool     `json:"decoder_real"`
	StartedAt       string   `json:"started_at"`
	EndedAt         string   `json:"ended_at,omitempty"`
	DurationMS      int64    `json:"duration_ms"`
	ChunksEmitted   int64    `json:"chunks_emitted"`
	ChunksProcessed int64    `json:"chunks_processed"`
	DroppedChunks   int64    `json:"dropped_chunks"`
	AvgLatencyMS    float64  `json:"avg_latency_ms"`
	MaxSyncDriftMS  int64    `json:"max_sync_drift_ms"`
	FallbackSources []string `json:"fallback_sources,omitempty"`
}

type CallListResponse struct {
	Calls []CallResponse `json:"calls"`
}

type MetricsResponse struct {
	CallID   string        `json:"call_id"`
	Live     bool          `json:"live"`
	Pipeline *LiveMetrics  `json:"pipeline,omitempty"`
	Final    *CallResponse `json:"final,omitempty"`
}

type TranscriptResponse struct {
	CallID string           `json:"call_id"`
	Chunks []*TranscriptRow `json:"chunks"`
}

type RefreshDecoderResponse struct {
	Decoder     string `json:"decoder"`
	DecoderReal bool   `json:"decoder_real"`
}

type ModelsResponse struct {
	Models []string `json:"models"`
}

func callToResponse(rec *CallRecord) CallResponse {
	resp := CallResponse{
		ID:              rec.ID,
		Status:          string(rec.Status),
		Decoder:         rec.Decoder,
		DecoderReal:     rec.DecoderReal,
		StartedAt:       rec.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
		DurationMS:      rec.DurationMS,
		ChunksEmitted:   rec.ChunksEmitted,
		ChunksProcessed: rec.ChunksProcessed,
		DroppedChunks:   rec.DroppedChunks,
		AvgLatencyMS:    rec.AvgLatencyMS,
		MaxSyncDriftMS:  rec.MaxSyncDriftMS,
		FallbackSources: rec.FallbackSources,
	}
	if rec.EndedAt != nil {
		resp.EndedAt = rec.EndedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}

// StartCall begins a new capture and transcription call
// @Summary      Start a call
// @Description  Opens both capture sources, resolves the decoder and starts transcribing. Only one call can be live at a time.
// @Tags         calls
// @Produce      json
// @Success      201 {object} CallResponse "Call record for the started call"
// @Failure      409 {object} shared.APIError "Another call is already active"
// @Failure      500 {object} shared.APIError "Failed to start the call"
// @Router       /calls [post]
func (h *Handler) StartCall(c echo.Context) error {
	rec, err := h.manager.StartCall(c.Request().Context())
	if err != nil {
		if errors.Is(err, ErrCallActive) {
			return shared.Conflict("call_active", "another call is already active")
		}
		h.logger.Error("failed to start call", "error", err)
		return shared.InternalError("start_failed", "failed to start call")
	}
	return c.JSON(http.StatusCreated, callToResponse(rec))
}

// ListCalls lists recent calls
// @Summary      List calls
// @Description  Returns recent call records, newest first.
// @Tags         calls
// @Produce      json
// @Param        limit query int false "Maximum records to return" default(50)
// @Success      200 {object} CallListResponse "Recent calls"
// @Failure      500 {object} shared.APIError "Failed to list calls"
// @Router       /calls [get]
func (h *Handler) ListCalls(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}

	recs, err := h.store.List(c.Request().Context(), limit)
	if err != nil {
		h.logger.Error("failed to list calls", "error", err)
		return shared.InternalError("list_failed", "failed to list calls")
	}

	resp := CallListResponse{Calls: make([]CallResponse, len(recs))}
	for i, rec := range recs {
		resp.Calls[i] = callToResponse(rec)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetCall returns one call record
// @Summary      Get a call
// @Description  Returns the stored record for one call, including final metrics once it has ended.
// @Tags         calls
// @Produce      json
// @Param        id path string true "Call ID"
// @Success      200 {object} CallResponse "Call record"
// @Failure      404 {object} shared.APIError "Call not found"
// @Failure      500 {object} shared.APIError "Failed to load the call"
// @Router       /calls/{id} [get]
func (h *Handler) GetCall(c echo.Context) error {
	id := c.Param("id")

	rec, err := h.store.GetByID(c.Request().Context(), id)
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NotFound("call_not_found", "call not found")
	}
	if err != nil {
		h.logger.Error("failed to load call", "call_id", id, "error", err)
		return shared.InternalError("get_failed", "failed to load call")
	}
	return c.JSON(http.StatusOK, callToResponse(rec))
}

// StopCall stops the active call
// @Summary      Stop a call
// @Description  Stops capture, drains the queue, flushes partial windows as final transcripts and finalizes the call record.
// @Tags         calls
// @Produce      json
// @Param        id path string true "Call ID"
// @Success      200 {object} CallResponse "Finalized call record"
// @Failure      404 {object} shared.APIError "Call not found"
// @Failure      409 {object} shared.APIError "Call is not active"
// @Failure      500 {object} shared.APIError "Failed to stop the call"
// @Router       /calls/{id}/stop [post]
func (h *Handler) StopCall(c echo.Context) error {
	id := c.Param("id")
	ctx := c.Request().Context()

	rec, err := h.manager.StopCall(ctx, id)
	if err == nil {
		return c.JSON(http.StatusOK, callToResponse(rec))
	}

	if errors.Is(err, ErrNoActiveCall) || errors.Is(err, shared.ErrNotFound) {
		// Not the live call; distinguish an ended call from an unknown one.
		if _, storeErr := h.store.GetByID(ctx, id); storeErr == nil {
			return shared.Conflict("call_not_active", "call is not active")
		}
		return shared.NotFound("call_not_found", "call not found")
	}

	h.logger.Error("failed to stop call", "call_id", id, "error", err)
	return shared.InternalError("stop_failed", "failed to stop call")
}

// GetMetrics returns live or final metrics for a call
// @Summary      Call metrics
// @Description  For the active call, returns a live snapshot of capture and transcription counters; for an ended call, the finalized record.
// @Tags         calls
// @Produce      json
// @Param        id path string true "Call ID"
// @Success      200 {object} MetricsResponse "Metrics snapshot"
// @Failure      404 {object} shared.APIError "Call not found"
// @Failure      500 {object} shared.APIError "Failed to load metrics"
// @Router       /calls/{id}/metrics [get]
func (h *Handler) GetMetrics(c echo.Context) error {
	id := c.Param("id")

	if lm, err := h.manager.LiveMetrics(id); err == nil {
		return c.JSON(http.StatusOK, MetricsResponse{CallID: id, Live: true, Pipeline: lm})
	}

	rec, err := h.store.GetByID(c.Request().Context(), id)
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NotFound("call_not_found", "call not found")
	}
	if err != nil {
		h.logger.Error("failed to load call metrics", "call_id", id, "error", err)
		return shared.InternalError("metrics_failed", "failed to load metrics")
	}

	final := callToResponse(rec)
	return c.JSON(http.StatusOK, MetricsResponse{CallID: id, Live: false, Final: &final})
}

// GetTranscript returns the persisted transcript of a call
// @Summary      Call transcript
// @Description  Returns the transcript chunks persisted for the call, ordered by start timestamp.
// @Tags         calls
// @Produce      json
// @Param        id path string true "Call ID"
// @Success      200 {object} TranscriptResponse "Transcript chunks"
// @Failure      404 {object} shared.APIError "Call not found"
// @Failure      500 {object} shared.APIError "Failed to load the transcript"
// @Router       /calls/{id}/transcript [get]
func (h *Handler) GetTranscript(c echo.Context) error {
	id := c.Param("id")
	ctx := c.Request().Context()

	if _, err := h.store.GetByID(ctx, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NotFound("call_not_found", "call not found")
		}
		h.logger.Error("failed to load call", "call_id", id, "error", err)
		return shared.InternalError("transcript_failed", "failed to load transcript")
	}

	rows, err := h.store.Transcript(ctx, id)
	if err != nil {
		h.logger.Error("failed to load transcript", "call_id", id, "error", err)
		return shared.InternalError("transcript_failed", "failed to load transcript")
	}
	if rows == nil {
		rows = []*TranscriptRow{}
	}
	return c.JSON(http.StatusOK, TranscriptResponse{CallID: id, Chunks: rows})
}

// RefreshDecoder re-resolves the decoder for the active call
// @Summary      Refresh the decoder
// @Description  Probes the decoder sidecar again and swaps the active call's decoder, picking up a model that has come online since start.
// @Tags         calls
// @Produce      json
// @Param        id path string true "Call ID"
// @Success      200 {object} RefreshDecoderResponse "Decoder now in use"
// @Failure      404 {object} shared.APIError "Call not found or not active"
// @Failure      500 {object} shared.APIError "Failed to refresh the decoder"
// @Router       /calls/{id}/decoder/refresh [post]
func (h *Handler) RefreshDecoder(c echo.Context) error {
	id := c.Param("id")

	name, real, err := h.manager.RefreshDecoder(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NotFound("call_not_active", "call not found or not active")
		}
		h.logger.Error("failed to refresh decoder", "call_id", id, "error", err)
		return shared.InternalError("refresh_failed", "failed to refresh decoder")
	}
	return c.JSON(http.StatusOK, RefreshDecoderResponse{Decoder: name, DecoderReal: real})
}

// ListModels lists the models advertised by the decoder sidecar
// @Summary      List decoder models
// @Description  Returns the model IDs the decoder sidecar advertises. Unavailable while the sidecar is down or disabled.
// @Tags         models
// @Produce      json
// @Success      200 {object} ModelsResponse "Advertised models"
// @Failure      503 {object} shared.APIError "Decoder sidecar unavailable"
// @Failure      500 {object} shared.APIError "Failed to list models"
// @Router       /models [get]
func (h *Handler) ListModels(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	models, err := h.models.Models(ctx)
	if err != nil {
		if errors.Is(err, model.ErrUnavailable) {
			return shared.ServiceUnavailable("decoder_unavailable", "decoder sidecar unavailable")
		}
		h.logger.Error("failed to list models", "error", err)
		return shared.InternalError("models_failed", "failed to list models")
	}
	if models == nil {
		models = []string{}
	}
	return c.JSON(http.StatusOK, ModelsResponse{Models: models})
}
