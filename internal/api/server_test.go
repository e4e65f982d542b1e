package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/gray-logic-irrigation/internal/actuation"
	"github.com/nerrad567/gray-logic-irrigation/internal/decision"
	"github.com/nerrad567/gray-logic-irrigation/internal/history"
	"github.com/nerrad567/gray-logic-irrigation/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-irrigation/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-irrigation/internal/strategy"
)

const testDocument = `
activeStrategy: default
strategies:
  default:
    name: Default
    durations: {thirsty: 5, moist: 2, overwatered: 0, unknown: 2}
  dry:
    name: Dry
    durations: {thirsty: 3, moist: 0, overwatered: 0, unknown: 0}
`

// mockCycles is a CycleRunner returning a canned report or error.
type mockCycles struct {
	calls  atomic.Int32
	err    error
	report decision.CycleReport
}

func (m *mockCycles) RunCycle(context.Context) (decision.CycleReport, error) {
	m.calls.Add(1)
	return m.report, m.err
}

func (m *mockCycles) Busy() bool { return false }

type mockHealth struct{ err error }

func (m mockHealth) HealthCheck(context.Context) error { return m.err }

// testServer creates a Server over an in-memory strategy store.
func testServer(t *testing.T, cycles *mockCycles, health map[string]HealthChecker) (*Server, *strategy.Store) {
	t.Helper()

	store := strategy.NewStore(strategy.NewMemorySource("test", []byte(testDocument)), nil)
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("store.Load() error = %v", err)
	}

	registry := prometheus.NewRegistry()
	decision.NewMetrics(registry)

	log := logging.NewWithWriter(io.Discard, config.LoggingConfig{Level: "error", Format: "text"}, "test")

	srv, err := New(Deps{
		Config:     config.APIConfig{Host: "127.0.0.1", Port: 0},
		Logger:     log,
		Strategies: store,
		Cycles:     cycles,
		Gatherer:   registry,
		Health:     health,
		Mode:       "remote",
		Version:    "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv, store
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) Error {
	t.Helper()
	var e Error
	if err := json.NewDecoder(rec.Body).Decode(&e); err != nil {
		t.Fatalf("decoding error body: %v (%s)", err, rec.Body.String())
	}
	return e
}

// ─── Construction ────────────────────────────────────────────────────

func TestNew_RequiresDeps(t *testing.T) {
	log := logging.NewWithWriter(io.Discard, config.LoggingConfig{}, "test")
	store := strategy.NewStore(strategy.NewBundledSource(), nil)

	tests := []Deps{
		{Strategies: store, Cycles: &mockCycles{}},
		{Logger: log, Cycles: &mockCycles{}},
		{Logger: log, Strategies: store},
	}
	for i, deps := range tests {
		if _, err := New(deps); err == nil {
			t.Errorf("case %d: New() should fail", i)
		}
	}
}

func TestHealthCheck_NotStarted(t *testing.T) {
	srv, _ := testServer(t, &mockCycles{}, nil)
	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start should fail")
	}
	if err := srv.Close(); err != nil {
		t.Errorf("Close() before Start = %v", err)
	}
}

// ─── Health & status ─────────────────────────────────────────────────

func TestHandleHealth(t *testing.T) {
	srv, _ := testServer(t, &mockCycles{}, map[string]HealthChecker{
		"database": mockHealth{},
	})

	rec := do(t, srv, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" || resp.Components["database"] != "ok" || resp.Version != "test" {
		t.Errorf("health = %+v", resp)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header not set")
	}
}

func TestHandleHealth_Degraded(t *testing.T) {
	srv, _ := testServer(t, &mockCycles{}, map[string]HealthChecker{
		"database": mockHealth{},
		"mqtt":     mockHealth{err: errors.New("mqtt: not connected")},
	})

	rec := do(t, srv, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "degraded" || resp.Components["mqtt"] != "mqtt: not connected" {
		t.Errorf("health = %+v", resp)
	}
}

func TestHandleStatus(t *testing.T) {
	srv, _ := testServer(t, &mockCycles{}, nil)

	rec := do(t, srv, http.MethodGet, "/api/v1/status", "")
	var resp StatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.ActiveStrategy != "default" || resp.StrategyCount != 2 || resp.Mode != "remote" {
		t.Errorf("status = %+v", resp)
	}
	if resp.Runtime.Goroutines == 0 {
		t.Error("runtime metrics missing")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := testServer(t, &mockCycles{}, nil)

	rec := do(t, srv, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	// Histograms are exported even before the first observation.
	if !strings.Contains(rec.Body.String(), "irrigation_cycle_duration_seconds") {
		t.Errorf("metrics output missing irrigation collectors:\n%s", rec.Body.String())
	}
}

// ─── Strategies ──────────────────────────────────────────────────────

func TestListAndGetStrategies(t *testing.T) {
	srv, _ := testServer(t, &mockCycles{}, nil)

	rec := do(t, srv, http.MethodGet, "/api/v1/strategies", "")
	var list StrategyListResponse
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if list.Active != "default" || len(list.Strategies) != 2 {
		t.Errorf("list = %+v", list)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/strategies/dry", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET dry status = %d", rec.Code)
	}
	var entry strategy.Entry
	if err := json.NewDecoder(rec.Body).Decode(&entry); err != nil {
		t.Fatal(err)
	}
	if entry.Key != "dry" || entry.Active || entry.Definition.Durations.Thirsty != 3 {
		t.Errorf("entry = %+v", entry)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/strategies/missing", "")
	if rec.Code != http.StatusNotFound || decodeError(t, rec).Code != ErrCodeNotFound {
		t.Errorf("GET missing status = %d", rec.Code)
	}
}

func TestUpsertStrategy(t *testing.T) {
	srv, store := testServer(t, &mockCycles{}, nil)

	body := `{"name":"Wet","description":"hot week","durations":{"thirsty":9,"moist":4,"overwatered":0,"unknown":1}}`
	rec := do(t, srv, http.MethodPut, "/api/v1/strategies/wet", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d: %s", rec.Code, rec.Body.String())
	}
	def, err := store.Get("wet")
	if err != nil || def.Durations.Thirsty != 9 || def.Description != "hot week" {
		t.Errorf("stored = %+v, %v", def, err)
	}
}

func TestUpsertStrategy_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing state", `{"name":"x","durations":{"thirsty":1,"moist":1,"overwatered":0}}`},
		{"negative", `{"name":"x","durations":{"thirsty":-1,"moist":1,"overwatered":0,"unknown":0}}`},
		{"no durations", `{"name":"x"}`},
		{"malformed", `{"name":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, store := testServer(t, &mockCycles{}, nil)
			rec := do(t, srv, http.MethodPut, "/api/v1/strategies/x", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body.String())
			}
			if _, err := store.Get("x"); !errors.Is(err, strategy.ErrNotFound) {
				t.Error("invalid definition was stored")
			}
		})
	}
}

func TestDeleteStrategy(t *testing.T) {
	srv, store := testServer(t, &mockCycles{}, nil)

	rec := do(t, srv, http.MethodDelete, "/api/v1/strategies/default", "")
	if rec.Code != http.StatusConflict || decodeError(t, rec).Code != ErrCodeInUse {
		t.Errorf("DELETE active status = %d, want 409 in_use", rec.Code)
	}

	rec = do(t, srv, http.MethodDelete, "/api/v1/strategies/dry", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("DELETE dry status = %d, want 204", rec.Code)
	}
	if _, err := store.Get("dry"); !errors.Is(err, strategy.ErrNotFound) {
		t.Error("dry still present after delete")
	}

	rec = do(t, srv, http.MethodDelete, "/api/v1/strategies/dry", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("second DELETE status = %d, want 404", rec.Code)
	}
}

func TestActivateStrategy(t *testing.T) {
	srv, store := testServer(t, &mockCycles{}, nil)

	rec := do(t, srv, http.MethodPost, "/api/v1/strategies/nonexistent/activate", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("activate nonexistent status = %d, want 404", rec.Code)
	}
	if store.ActiveName() != "default" {
		t.Errorf("active = %q after failed activate", store.ActiveName())
	}

	rec = do(t, srv, http.MethodPost, "/api/v1/strategies/dry/activate", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("activate dry status = %d", rec.Code)
	}
	if store.ActiveName() != "dry" {
		t.Errorf("active = %q, want dry", store.ActiveName())
	}
}

func TestReloadStrategies(t *testing.T) {
	srv, store := testServer(t, &mockCycles{}, nil)

	// Changes made through the store are visible in the source, so a
	// reload returns the same document.
	if err := store.SetActive(context.Background(), "dry"); err != nil {
		t.Fatal(err)
	}
	rec := do(t, srv, http.MethodPost, "/api/v1/strategies/reload", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reload status = %d: %s", rec.Code, rec.Body.String())
	}
	var list StrategyListResponse
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if list.Active != "dry" {
		t.Errorf("active after reload = %q, want dry", list.Active)
	}
}

func TestReloadStrategies_InvalidSource(t *testing.T) {
	log := logging.NewWithWriter(io.Discard, config.LoggingConfig{Level: "error"}, "test")
	store := strategy.NewStore(strategy.NewMemorySource("broken", []byte("strategies: [")), nil)
	srv, err := New(Deps{Logger: log, Strategies: store, Cycles: &mockCycles{}})
	if err != nil {
		t.Fatal(err)
	}

	rec := do(t, srv, http.MethodPost, "/api/v1/strategies/reload", "")
	if rec.Code != http.StatusUnprocessableEntity || decodeError(t, rec).Code != ErrCodeInvalidConf {
		t.Errorf("reload status = %d, want 422 invalid_config", rec.Code)
	}
}

// ─── Cycles ──────────────────────────────────────────────────────────

func TestRunCycle(t *testing.T) {
	cycles := &mockCycles{report: decision.CycleReport{
		ID:       "c-1",
		Outcome:  decision.OutcomeCompleted,
		Commands: []actuation.Command{{Channel: 4, PumpID: "pump-1", DurationSeconds: 2}},
	}}
	srv, _ := testServer(t, cycles, nil)

	rec := do(t, srv, http.MethodPost, "/api/v1/cycles", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var report decision.CycleReport
	if err := json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if report.ID != "c-1" || len(report.Commands) != 1 || report.Commands[0].PumpID != "pump-1" {
		t.Errorf("report = %+v", report)
	}
	if cycles.calls.Load() != 1 {
		t.Errorf("RunCycle called %d times", cycles.calls.Load())
	}
}

func TestRunCycle_Busy(t *testing.T) {
	srv, _ := testServer(t, &mockCycles{err: decision.ErrCycleInProgress}, nil)

	rec := do(t, srv, http.MethodPost, "/api/v1/cycles", "")
	if rec.Code != http.StatusConflict || decodeError(t, rec).Code != ErrCodeBusy {
		t.Errorf("status = %d, want 409 cycle_in_progress", rec.Code)
	}
}

// mockHistory records the last filter and returns a canned page.
type mockHistory struct {
	filter history.Filter
	err    error
}

func (m *mockHistory) List(_ context.Context, f history.Filter) (*history.ListResult, error) {
	m.filter = f
	if m.err != nil {
		return nil, m.err
	}
	return &history.ListResult{
		Runs:  []decision.CycleReport{{ID: "c-9", Outcome: decision.OutcomeDegraded}},
		Total: 1,
		Limit: 50,
	}, nil
}

func TestListCycles(t *testing.T) {
	srv, _ := testServer(t, &mockCycles{}, nil)
	hist := &mockHistory{}
	srv.history = hist

	rec := do(t, srv, http.MethodGet, "/api/v1/cycles?outcome=degraded&since=2026-03-01T10:00:00Z&limit=5&offset=10", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var page history.ListResult
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 || page.Runs[0].ID != "c-9" {
		t.Errorf("page = %+v", page)
	}

	want := history.Filter{
		Outcome: "degraded",
		Since:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Limit:   5,
		Offset:  10,
	}
	if !hist.filter.Since.Equal(want.Since) || hist.filter.Outcome != want.Outcome ||
		hist.filter.Limit != want.Limit || hist.filter.Offset != want.Offset {
		t.Errorf("filter = %+v, want %+v", hist.filter, want)
	}
}

func TestListCycles_BadQuery(t *testing.T) {
	srv, _ := testServer(t, &mockCycles{}, nil)
	srv.history = &mockHistory{}

	for _, q := range []string{"since=yesterday", "limit=-1", "offset=abc"} {
		rec := do(t, srv, http.MethodGet, "/api/v1/cycles?"+q, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, rec.Code)
		}
	}
}

func TestListCycles_Disabled(t *testing.T) {
	srv, _ := testServer(t, &mockCycles{}, nil)

	rec := do(t, srv, http.MethodGet, "/api/v1/cycles", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestListCycles_StoreError(t *testing.T) {
	srv, _ := testServer(t, &mockCycles{}, nil)
	srv.history = &mockHistory{err: errors.New("locked")}

	rec := do(t, srv, http.MethodGet, "/api/v1/cycles", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

// ─── Middleware ──────────────────────────────────────────────────────

func TestRequestIDPassthrough(t *testing.T) {
	srv, _ := testServer(t, &mockCycles{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want abc-123", got)
	}
}

func TestBodySizeLimit(t *testing.T) {
	srv, _ := testServer(t, &mockCycles{}, nil)

	huge := `{"name":"` + strings.Repeat("x", maxRequestBodySize+1) + `"}`
	rec := do(t, srv, http.MethodPut, "/api/v1/strategies/big", huge)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	srv, _ := testServer(t, &mockCycles{}, nil)

	handler := srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
