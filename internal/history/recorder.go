package history

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-irrigation/internal/decision"
)

const writeTimeout = 2 * time.Second

// Logger is the logging interface used by the recorder.
type Logger interface {
	Warn(msg string, args ...any)
}

// Recorder adapts a Repository to decision.CycleRecorder. When a retention
// is set, runs older than it are pruned after each insert.
type Recorder struct {
	repo      Repository
	retention time.Duration
	logger    Logger
}

// NewRecorder creates a recorder. retention <= 0 keeps every run.
func NewRecorder(repo Repository, retention time.Duration, logger Logger) *Recorder {
	return &Recorder{repo: repo, retention: retention, logger: logger}
}

// RecordCycle stores the report. Failures are logged and otherwise ignored.
func (r *Recorder) RecordCycle(report decision.CycleReport) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := r.repo.Create(ctx, report); err != nil {
		r.warn("recording cycle failed", "cycle_id", report.ID, "error", err)
		return
	}
	if r.retention <= 0 {
		return
	}
	if _, err := r.repo.Prune(ctx, report.StartedAt.Add(-r.retention)); err != nil {
		r.warn("pruning cycle history failed", "error", err)
	}
}

func (r *Recorder) warn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}
