package health

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/EduardoFdeM/pitchai-backend/internal/gateway"
)

func quietHealthLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubProbe struct {
	available bool
}

func (p *stubProbe) Available(ctx context.Context) bool { return p.available }

type stubCallInfo struct {
	id     string
	active bool
}

func (s *stubCallInfo) ActiveCallID() (string, bool) { return s.id, s.active }

type healthFixture struct {
	handler *Handler
	mr      *miniredis.Miniredis
}

func newHealthFixture(t *testing.T, probe DecoderProbe, calls CallInfo) *healthFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	hub := gateway.NewHub(quietHealthLogger())
	return &healthFixture{
		handler: NewHandler(db, rdb, probe, calls, hub, "test"),
		mr:      mr,
	}
}

func doHealthRequest(t *testing.T, h *Handler, target string, fn echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := fn(c); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	return rec
}

func TestHandler_Liveness(t *testing.T) {
	f := newHealthFixture(t, &stubProbe{available: true}, &stubCallInfo{})

	rec := doHealthRequest(t, f.handler, "/health", f.handler.Liveness)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestHandler_Readiness_AllHealthy(t *testing.T) {
	f := newHealthFixture(t, &stubProbe{available: true}, &stubCallInfo{id: "call_abc", active: true})

	rec := doHealthRequest(t, f.handler, "/health/ready", f.handler.Readiness)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if resp.Status != StatusHealthy {
		t.Errorf("overall status = %s, want %s", resp.Status, StatusHealthy)
	}
	for _, name := range []string{"database", "redis", "decoder"} {
		comp, ok := resp.Components[name]
		if !ok {
			t.Errorf("missing component %s", name)
			continue
		}
		if comp.Status != StatusHealthy {
			t.Errorf("component %s = %s, want healthy", name, comp.Status)
		}
	}
	if !resp.Stats.Pipeline.CallActive || resp.Stats.Pipeline.ActiveCallID != "call_abc" {
		t.Errorf("pipeline stats = %+v, want active call_abc", resp.Stats.Pipeline)
	}
	if resp.Stats.Runtime.Goroutines <= 0 {
		t.Errorf("goroutines = %d, want > 0", resp.Stats.Runtime.Goroutines)
	}
	if resp.Version != "test" {
		t.Errorf("version = %q, want test", resp.Version)
	}
}

func TestHandler_Readiness_DecoderDownDegrades(t *testing.T) {
	f := newHealthFixture(t, &stubProbe{available: false}, &stubCallInfo{})

	rec := doHealthRequest(t, f.handler, "/health/ready", f.handler.Readiness)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (degraded still serves)", rec.Code, http.StatusOK)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if resp.Status != StatusDegraded {
		t.Errorf("overall status = %s, want %s", resp.Status, StatusDegraded)
	}
	if resp.Components["decoder"].Status != StatusDegraded {
		t.Errorf("decoder status = %s, want degraded", resp.Components["decoder"].Status)
	}
}

func TestHandler_Readiness_RedisDownIsUnhealthy(t *testing.T) {
	f := newHealthFixture(t, &stubProbe{available: true}, &stubCallInfo{})
	f.mr.Close()

	rec := doHealthRequest(t, f.handler, "/health/ready", f.handler.Readiness)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if resp.Status != StatusUnhealthy {
		t.Errorf("overall status = %s, want %s", resp.Status, StatusUnhealthy)
	}
	if resp.Components["redis"].Status != StatusUnhealthy {
		t.Errorf("redis status = %s, want unhealthy", resp.Components["redis"].Status)
	}
}

func TestHandler_RequestCounters(t *testing.T) {
	f := newHealthFixture(t, &stubProbe{available: true}, &stubCallInfo{})

	f.handler.IncrementRequests()
	f.handler.IncrementRequests()
	f.handler.IncrementConnections()

	rec := doHealthRequest(t, f.handler, "/health/ready", f.handler.Readiness)

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if resp.Stats.Requests.TotalRequests != 2 {
		t.Errorf("total requests = %d, want 2", resp.Stats.Requests.TotalRequests)
	}
	if resp.Stats.Requests.ActiveConnections != 1 {
		t.Errorf("active connections = %d, want 1", resp.Stats.Requests.ActiveConnections)
	}
}
