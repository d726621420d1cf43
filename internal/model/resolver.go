// Package model decides which decoder a transcription session runs with. The
// resolver probes the whisper sidecar once per resolve; when the sidecar is
// down, still loading or explicitly disabled it reports ErrUnavailable and
// the caller falls back to the simulated decoder.
package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/EduardoFdeM/pitchai-backend/internal/decoder"
)

// ErrUnavailable signals that no real model can be supplied.
var ErrUnavailable = errors.New("model: decoder unavailable")

const defaultProbeTimeout = 2 * time.Second

// ResolverConfig configures sidecar probing and the decoders it hands out.
type ResolverConfig struct {
	// BaseURL of the whisper-compatible sidecar.
	BaseURL string

	// DefaultModel is used when Resolve gets an empty name and the sidecar
	// lists nothing.
	DefaultModel string

	// Language hint passed to real decoders.
	Language string

	// Disabled forces simulated mode regardless of sidecar state.
	Disabled bool

	ProbeTimeout  time.Duration
	DecodeTimeout time.Duration
	Logger        *slog.Logger
}

// Resolver supplies decoders based on live sidecar state.
type Resolver struct {
	httpClient    *http.Client
	baseURL       string
	defaultModel  string
	language      string
	disabled      bool
	decodeTimeout time.Duration
	logger        *slog.Logger
}

// NewResolver creates a resolver from cfg.
func NewResolver(cfg ResolverConfig) *Resolver {
	probeTimeout := cfg.ProbeTimeout
	if probeTimeout == 0 {
		probeTimeout = defaultProbeTimeout
	}
	defaultModel := cfg.DefaultModel
	if defaultModel == "" {
		defaultModel = "whisper-1"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		httpClient:    &http.Client{Timeout: probeTimeout},
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		defaultModel:  defaultModel,
		language:      cfg.Language,
		disabled:      cfg.Disabled,
		decodeTimeout: cfg.DecodeTimeout,
		logger:        logger,
	}
}

// Available reports whether the sidecar answers its model listing.
func (r *Resolver) Available(ctx context.Context) bool {
	_, err := r.Models(ctx)
	return err == nil
}

type modelList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Models lists the model ids the sidecar serves.
func (r *Resolver) Models(ctx context.Context) ([]string, error) {
	if r.disabled {
		return nil, fmt.Errorf("real decoder disabled by configuration: %w", ErrUnavailable)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/v1/models", nil)
	if err != nil {
		return nil, fmt.Errorf("model: build probe: %w", err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("model: probe %s: %v: %w", r.baseURL, err, ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model: probe returned http %d: %w", resp.StatusCode, ErrUnavailable)
	}

	var list modelList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("model: parse model list: %v: %w", err, ErrUnavailable)
	}

	ids := make([]string, 0, len(list.Data))
	for _, m := range list.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// Resolve returns a real decoder bound to the named model, or ErrUnavailable
// when the sidecar cannot serve one. The decision is made once here; callers
// keep whatever decoder they get for the session.
func (r *Resolver) Resolve(ctx context.Context, modelName string) (decoder.Decoder, error) {
	models, err := r.Models(ctx)
	if err != nil {
		return nil, err
	}

	name := modelName
	if name == "" {
		if len(models) > 0 {
			name = models[0]
		} else {
			name = r.defaultModel
		}
	} else if len(models) > 0 && !slices.Contains(models, name) {
		r.logger.Debug("requested model not in sidecar listing, using it anyway",
			"model", name, "available", models)
	}

	r.logger.Info("resolved real decoder", "model", name, "base_url", r.baseURL)
	return decoder.NewReal(decoder.RealConfig{
		BaseURL:  r.baseURL,
		Model:    name,
		Language: r.language,
		Timeout:  r.decodeTimeout,
		Logger:   r.logger,
	}), nil
}
