package decision

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-irrigation/internal/actuation"
	"github.com/nerrad567/gray-logic-irrigation/internal/strategy"
)

// StrategySource resolves the active strategy. *strategy.Store satisfies it.
type StrategySource interface {
	Active() (strategy.Strategy, error)
}

// Dispatcher sends the commands of one cycle. *actuation.Dispatcher
// satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, commands []actuation.Command) actuation.Summary
}

// CycleRecorder receives the report of every completed cycle. It is
// called synchronously at the end of the cycle and should return quickly.
type CycleRecorder interface {
	RecordCycle(r CycleReport)
}

// CycleRecorders fans a report out to several recorders in order.
type CycleRecorders []CycleRecorder

// RecordCycle implements CycleRecorder.
func (rs CycleRecorders) RecordCycle(r CycleReport) {
	for _, rec := range rs {
		rec.RecordCycle(r)
	}
}

// Logger is the logging interface used by the engine and scheduler.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Outcome summarises a cycle.
type Outcome string

const (
	// OutcomeNoop: the snapshot was empty or unavailable.
	OutcomeNoop Outcome = "noop"

	// OutcomeCompleted: every command was sent (or skipped in local mode).
	OutcomeCompleted Outcome = "completed"

	// OutcomeDegraded: at least one command failed to send.
	OutcomeDegraded Outcome = "degraded"
)

// SkipReason explains why a pot produced no command.
type SkipReason string

const (
	SkipZeroDuration   SkipReason = "zero_duration"
	SkipNoPump         SkipReason = "no_pump"
	SkipInvalidChannel SkipReason = "invalid_channel"
)

// SkippedPot records a pot that produced no command.
type SkippedPot struct {
	PotID  string     `json:"potId"`
	PumpID string     `json:"pumpId,omitempty"`
	Reason SkipReason `json:"reason"`
	Error  string     `json:"error,omitempty"`
}

// CycleReport describes one completed cycle.
type CycleReport struct {
	ID          string              `json:"id"`
	StartedAt   time.Time           `json:"startedAt"`
	Duration    time.Duration       `json:"durationNs"`
	Outcome     Outcome             `json:"outcome"`
	Strategy    string              `json:"strategy,omitempty"`
	Plants      int                 `json:"plants"`
	Pots        int                 `json:"pots"`
	Commands    []actuation.Command `json:"commands"`
	Skipped     []SkippedPot        `json:"skipped"`
	Sent        int                 `json:"sent"`
	Failed      int                 `json:"failed"`
	LocalOnly   int                 `json:"localOnly"`
	PlantErrors int                 `json:"plantErrors"`
}
