package call

import (
	"time"

	"github.com/EduardoFdeM/pitchai-backend/internal/shared"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
	StatusError  Status = "error"
)

type CallRecord struct {
	ID              string             `gorm:"primaryKey" json:"id"`
	Status          Status             `gorm:"index" json:"status"`
	Decoder         string             `json:"decoder"`
	DecoderReal     bool               `json:"decoder_real"`
	StartedAt       time.Time          `json:"started_at"`
	EndedAt         *time.Time         `json:"ended_at,omitempty"`
	DurationMS      int64              `json:"duration_ms"`
	ChunksEmitted   int64              `json:"chunks_emitted"`
	ChunksProcessed int64              `json:"chunks_processed"`
	DroppedChunks   int64              `json:"dropped_chunks"`
	AvgLatencyMS    float64            `json:"avg_latency_ms"`
	MaxSyncDriftMS  int64              `json:"max_sync_drift_ms"`
	FallbackSources shared.StringSlice `gorm:"type:text" json:"fallback_sources"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

type TranscriptRow struct {
	ID         uint    `gorm:"primaryKey" json:"-"`
	CallID     string  `gorm:"index:idx_transcript_call" json:"call_id"`
	Source     string  `gorm:"not null" json:"source"`
	Speaker    string  `json:"speaker"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	TSStartMS  int64   `gorm:"index:idx_transcript_call" json:"ts_start_ms"`
	TSEndMS    int64   `json:"ts_end_ms"`
	Final      bool    `json:"final"`

	CreatedAt time.Time `json:"created_at"`
}
