package call

import (
	"context"
	"testing"
	"time"

	"github.com/EduardoFdeM/pitchai-backend/internal/shared"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestCallDB(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	store := NewStore(db)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migration failed: %v", err)
	}
	return store
}

func TestStore_CreateAndGet(t *testing.T) {
	store := setupTestCallDB(t)
	ctx := context.Background()

	rec := &CallRecord{
		ID:        "call_abc",
		Status:    StatusActive,
		Decoder:   "simulated",
		StartedAt: time.Now(),
	}
	if err := store.Create(ctx, rec); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.GetByID(ctx, "call_abc")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != StatusActive || got.Decoder != "simulated" {
		t.Errorf("got %+v", got)
	}

	if _, err := store.GetByID(ctx, "call_missing"); err != shared.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Create_GeneratesID(t *testing.T) {
	store := setupTestCallDB(t)

	rec := &CallRecord{Status: StatusActive, StartedAt: time.Now()}
	if err := store.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if rec.ID == "" {
		t.Error("call ID should be generated if not provided")
	}
}

func TestStore_List_NewestFirst(t *testing.T) {
	store := setupTestCallDB(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		rec := &CallRecord{
			ID:        "call_" + string(rune('a'+i)),
			Status:    StatusEnded,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Create(ctx, rec); err != nil {
			t.Fatalf("Create %d failed: %v", i, err)
		}
	}

	recs, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("List returned %d records, want 2", len(recs))
	}
	if recs[0].ID != "call_c" || recs[1].ID != "call_b" {
		t.Errorf("List order wrong: %s, %s", recs[0].ID, recs[1].ID)
	}
}

func TestStore_Update(t *testing.T) {
	store := setupTestCallDB(t)
	ctx := context.Background()

	rec := &CallRecord{ID: "call_upd", Status: StatusActive, StartedAt: time.Now()}
	if err := store.Create(ctx, rec); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	now := time.Now()
	rec.Status = StatusEnded
	rec.EndedAt = &now
	rec.DurationMS = 4200
	rec.ChunksProcessed = 12
	rec.FallbackSources = shared.StringSlice{"microphone"}
	if err := store.Update(ctx, rec); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := store.GetByID(ctx, "call_upd")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != StatusEnded || got.DurationMS != 4200 || got.EndedAt == nil {
		t.Errorf("update not persisted: %+v", got)
	}
	if len(got.FallbackSources) != 1 || got.FallbackSources[0] != "microphone" {
		t.Errorf("fallback sources = %v", got.FallbackSources)
	}
}

func TestStore_CloseStale(t *testing.T) {
	store := setupTestCallDB(t)
	ctx := context.Background()

	store.Create(ctx, &CallRecord{ID: "call_live", Status: StatusActive, StartedAt: time.Now()})
	store.Create(ctx, &CallRecord{ID: "call_done", Status: StatusEnded, StartedAt: time.Now()})

	n, err := store.CloseStale(ctx)
	if err != nil {
		t.Fatalf("CloseStale failed: %v", err)
	}
	if n != 1 {
		t.Errorf("CloseStale closed %d calls, want 1", n)
	}

	got, _ := store.GetByID(ctx, "call_live")
	if got.Status != StatusError {
		t.Errorf("stale call status = %s, want error", got.Status)
	}
	done, _ := store.GetByID(ctx, "call_done")
	if done.Status != StatusEnded {
		t.Errorf("ended call status changed to %s", done.Status)
	}
}

func TestStore_Transcript_OrderedByStart(t *testing.T) {
	store := setupTestCallDB(t)
	ctx := context.Background()

	rows := []*TranscriptRow{
		{CallID: "call_t", Source: "loopback", Speaker: "customer", Text: "segundo", TSStartMS: 2500, TSEndMS: 5500},
		{CallID: "call_t", Source: "microphone", Speaker: "agent", Text: "primeiro", TSStartMS: 0, TSEndMS: 3000},
		{CallID: "other", Source: "microphone", Speaker: "agent", Text: "outra chamada", TSStartMS: 0, TSEndMS: 3000},
	}
	for i, r := range rows {
		if err := store.AppendTranscript(ctx, r); err != nil {
			t.Fatalf("AppendTranscript %d failed: %v", i, err)
		}
	}

	got, err := store.Transcript(ctx, "call_t")
	if err != nil {
		t.Fatalf("Transcript failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Transcript returned %d rows, want 2", len(got))
	}
	if got[0].Text != "primeiro" || got[1].Text != "segundo" {
		t.Errorf("Transcript order wrong: %q, %q", got[0].Text, got[1].Text)
	}

	empty, err := store.Transcript(ctx, "call_none")
	if err != nil {
		t.Fatalf("Transcript empty call failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no rows, got %d", len(empty))
	}
}
