package decoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"mime/multipart"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/EduardoFdeM/pitchai-backend/internal/audio"
)

const defaultDecodeTimeout = 30 * time.Second

// fallbackConfidence is reported when the server returns text without
// segment log-probabilities.
const fallbackConfidence = 0.75

// RealConfig configures the sidecar-backed decoder.
type RealConfig struct {
	// BaseURL of the whisper-compatible server, e.g. http://127.0.0.1:8080.
	BaseURL string

	// Model name sent with every request.
	Model string

	// Language hint, e.g. "pt". Empty lets the model detect.
	Language string

	Timeout time.Duration
	Logger  *slog.Logger
}

// Real decodes windows through a whisper-compatible sidecar using the
// /v1/audio/transcriptions multipart protocol. Any failure is converted into
// an empty result and counted, never propagated.
type Real struct {
	httpClient *http.Client
	baseURL    string
	model      string
	language   string
	logger     *slog.Logger
	failures   atomic.Int64
}

// NewReal creates a sidecar decoder from cfg.
func NewReal(cfg RealConfig) *Real {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultDecodeTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Real{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		language:   cfg.Language,
		logger:     logger,
	}
}

type transcriptionSegment struct {
	Text         string  `json:"text"`
	AvgLogprob   float64 `json:"avg_logprob"`
	NoSpeechProb float64 `json:"no_speech_prob"`
}

type transcriptionResponse struct {
	Text     string                 `json:"text"`
	Language string                 `json:"language"`
	Segments []transcriptionSegment `json:"segments"`
}

func (r *Real) Decode(ctx context.Context, samples []int16, sampleRate int) Result {
	if len(samples) == 0 {
		return Result{}
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("model", r.model); err != nil {
		return r.fail("build request", err)
	}
	if err := mw.WriteField("response_format", "verbose_json"); err != nil {
		return r.fail("build request", err)
	}
	if r.language != "" {
		if err := mw.WriteField("language", r.language); err != nil {
			return r.fail("build request", err)
		}
	}
	fw, err := mw.CreateFormFile("file", "window.wav")
	if err != nil {
		return r.fail("build request", err)
	}
	if _, err := fw.Write(audio.EncodeWAV(samples, sampleRate)); err != nil {
		return r.fail("build request", err)
	}
	if err := mw.Close(); err != nil {
		return r.fail("build request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/audio/transcriptions", &body)
	if err != nil {
		return r.fail("build request", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return r.fail("send request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return r.fail("server response", fmt.Errorf("http %d: %s", resp.StatusCode, string(b)))
	}

	var tr transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return r.fail("parse response", err)
	}

	text := strings.TrimSpace(tr.Text)
	if text == "" {
		return Result{}
	}
	return Result{Text: text, Confidence: confidenceFrom(tr.Segments)}
}

func (r *Real) IsReal() bool { return true }

func (r *Real) Name() string { return "whisper:" + r.model }

// Failures reports how many decodes were converted into empty results.
func (r *Real) Failures() int64 {
	return r.failures.Load()
}

func (r *Real) fail(stage string, err error) Result {
	r.failures.Add(1)
	r.logger.Warn("decode failed", "decoder", r.Name(), "stage", stage, "error", err)
	return Result{}
}

// confidenceFrom maps whisper segment log-probabilities to [0,1] via
// exp(mean avg_logprob).
func confidenceFrom(segments []transcriptionSegment) float64 {
	if len(segments) == 0 {
		return fallbackConfidence
	}
	var sum float64
	for _, s := range segments {
		sum += s.AvgLogprob
	}
	conf := math.Exp(sum / float64(len(segments)))
	if conf > 1 {
		conf = 1
	}
	if conf < 0 {
		conf = 0
	}
	return conf
}
