package history

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-irrigation/internal/actuation"
	"github.com/nerrad567/gray-logic-irrigation/internal/decision"
	"github.com/nerrad567/gray-logic-irrigation/internal/infrastructure/database"
	_ "github.com/nerrad567/gray-logic-irrigation/migrations"
)

func openRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "history.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

var base = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func report(id string, offset time.Duration, outcome decision.Outcome) decision.CycleReport {
	return decision.CycleReport{
		ID:        id,
		StartedAt: base.Add(offset),
		Duration:  120 * time.Millisecond,
		Outcome:   outcome,
		Strategy:  "default",
		Plants:    2,
		Pots:      1,
		Commands:  []actuation.Command{{Channel: 7, PumpID: "pump-a", DurationSeconds: 5}},
		Skipped:   []decision.SkippedPot{},
		Sent:      1,
	}
}

// ─── Create / List ──────────────────────────────────────────────────

func TestCreateAndList(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()

	for _, r := range []decision.CycleReport{
		report("c1", 0, decision.OutcomeCompleted),
		report("c2", 500*time.Millisecond, decision.OutcomeDegraded),
		report("c3", time.Minute, decision.OutcomeCompleted),
	} {
		if err := repo.Create(ctx, r); err != nil {
			t.Fatalf("Create(%s) error = %v", r.ID, err)
		}
	}

	res, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Total != 3 || len(res.Runs) != 3 {
		t.Fatalf("List() total = %d, runs = %d; want 3, 3", res.Total, len(res.Runs))
	}
	if res.Runs[0].ID != "c3" || res.Runs[1].ID != "c2" || res.Runs[2].ID != "c1" {
		t.Errorf("order = %s,%s,%s; want most recent first", res.Runs[0].ID, res.Runs[1].ID, res.Runs[2].ID)
	}
	if res.Limit != defaultLimit {
		t.Errorf("Limit = %d, want %d", res.Limit, defaultLimit)
	}

	got := res.Runs[2]
	if len(got.Commands) != 1 || got.Commands[0].PumpID != "pump-a" || !got.StartedAt.Equal(base) {
		t.Errorf("round-tripped report = %+v", got)
	}
}

func TestList_Filters(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()

	for i, outcome := range []decision.Outcome{
		decision.OutcomeCompleted, decision.OutcomeDegraded, decision.OutcomeNoop, decision.OutcomeDegraded,
	} {
		r := report(string(rune('a'+i)), time.Duration(i)*time.Hour, outcome)
		if err := repo.Create(ctx, r); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	tests := []struct {
		name      string
		filter    Filter
		wantTotal int
		wantRuns  int
	}{
		{"by outcome", Filter{Outcome: "degraded"}, 2, 2},
		{"since", Filter{Since: base.Add(2 * time.Hour)}, 2, 2},
		{"outcome and since", Filter{Outcome: "degraded", Since: base.Add(2 * time.Hour)}, 1, 1},
		{"page", Filter{Limit: 1, Offset: 1}, 4, 1},
		{"limit clamped", Filter{Limit: 10000}, 4, 4},
		{"no match", Filter{Outcome: "completed", Since: base.Add(time.Hour)}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if res.Total != tt.wantTotal || len(res.Runs) != tt.wantRuns {
				t.Errorf("total = %d, runs = %d; want %d, %d", res.Total, len(res.Runs), tt.wantTotal, tt.wantRuns)
			}
			if res.Limit > maxLimit {
				t.Errorf("Limit = %d exceeds max", res.Limit)
			}
		})
	}
}

func TestCreate_RequiresID(t *testing.T) {
	repo := openRepo(t)
	if err := repo.Create(context.Background(), decision.CycleReport{}); err == nil {
		t.Error("Create() without id should fail")
	}
}

func TestPrune(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := repo.Create(ctx, report(string(rune('a'+i)), time.Duration(i)*24*time.Hour, decision.OutcomeCompleted)); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	n, err := repo.Prune(ctx, base.Add(36*time.Hour))
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Prune() removed %d, want 2", n)
	}

	res, _ := repo.List(ctx, Filter{})
	if res.Total != 1 || res.Runs[0].ID != "c" {
		t.Errorf("remaining = %+v", res.Runs)
	}
}

// ─── Recorder ───────────────────────────────────────────────────────

type failingRepo struct {
	Repository
	mu     sync.Mutex
	pruned []time.Time
	err    error
}

func (f *failingRepo) Create(context.Context, decision.CycleReport) error { return f.err }

func (f *failingRepo) Prune(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pruned = append(f.pruned, before)
	return 0, nil
}

type warnLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *warnLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func TestRecorder_StoresAndPrunes(t *testing.T) {
	repo := openRepo(t)
	ctx := context.Background()

	old := report("old", -48*time.Hour, decision.OutcomeCompleted)
	if err := repo.Create(ctx, old); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	rec := NewRecorder(repo, 24*time.Hour, nil)
	rec.RecordCycle(report("new", 0, decision.OutcomeCompleted))

	res, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Total != 1 || res.Runs[0].ID != "new" {
		t.Errorf("runs = %+v, want only the new run", res.Runs)
	}
}

func TestRecorder_CreateFailureLogged(t *testing.T) {
	repo := &failingRepo{err: errors.New("disk full")}
	logger := &warnLogger{}

	NewRecorder(repo, time.Hour, logger).RecordCycle(report("x", 0, decision.OutcomeNoop))

	if len(logger.warns) != 1 {
		t.Errorf("warnings = %v, want one", logger.warns)
	}
	if len(repo.pruned) != 0 {
		t.Error("prune should not run after a failed insert")
	}
}

func TestRecorder_NoRetention(t *testing.T) {
	repo := &failingRepo{}
	NewRecorder(repo, 0, nil).RecordCycle(report("x", 0, decision.OutcomeNoop))

	if len(repo.pruned) != 0 {
		t.Error("prune should not run without a retention")
	}
}
