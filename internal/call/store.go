package call

import (
	"context"
	"errors"

	"github.com/EduardoFdeM/pitchai-backend/internal/shared"
	"gorm.io/gorm"
)

const defaultListLimit = 50

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&CallRecord{}, &TranscriptRow{})
}

func (s *Store) Create(ctx context.Context, rec *CallRecord) error {
	if rec.ID == "" {
		rec.ID = shared.NewID("call_")
	}
	return s.db.WithContext(ctx).Create(rec).Error
}

func (s *Store) GetByID(ctx context.Context, id string) (*CallRecord, error) {
	var rec CallRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	return &rec, err
}

func (s *Store) List(ctx context.Context, limit int) ([]*CallRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	var recs []*CallRecord
	err := s.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&recs).Error
	return recs, err
}

func (s *Store) Update(ctx context.Context, rec *CallRecord) error {
	return s.db.WithContext(ctx).Save(rec).Error
}

// CloseStale marks calls left active by a previous process as errored. Run at
// startup before any new call begins.
func (s *Store) CloseStale(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&CallRecord{}).
		Where("status = ?", StatusActive).
		Update("status", StatusError)
	return result.RowsAffected, result.Error
}

func (s *Store) AppendTranscript(ctx context.Context, row *TranscriptRow) error {
	return s.db.WithContext(ctx).Create(row).Error
}

func (s *Store) Transcript(ctx context.Context, callID string) ([]*TranscriptRow, error) {
	var rows []*TranscriptRow
	err := s.db.WithContext(ctx).
		Where("call_id = ?", callID).
		Order("ts_start_ms ASC, id ASC").
		Find(&rows).Error
	return rows, err
}
