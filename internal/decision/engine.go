package decision

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-irrigation/internal/actuation"
	"github.com/nerrad567/gray-logic-irrigation/internal/plant"
	"github.com/nerrad567/gray-logic-irrigation/internal/strategy"
)

// Engine runs decision cycles: fetch plants, decide a duration per pot,
// dispatch one command per watered pump.
//
// At most one cycle runs at a time. RunCycle returns ErrCycleInProgress
// instead of waiting when a cycle is already running.
//
// Thread Safety: RunCycle is safe for concurrent use.
type Engine struct {
	provider   plant.Provider
	strategies StrategySource
	dispatcher Dispatcher
	recorder   CycleRecorder
	metrics    *Metrics
	logger     Logger

	busy atomic.Bool
}

// Deps holds the collaborators of an Engine. Recorder, Metrics and Logger
// are optional.
type Deps struct {
	Provider   plant.Provider
	Strategies StrategySource
	Dispatcher Dispatcher
	Recorder   CycleRecorder
	Metrics    *Metrics
	Logger     Logger
}

// NewEngine creates an engine.
func NewEngine(deps Deps) (*Engine, error) {
	if deps.Provider == nil {
		return nil, fmt.Errorf("plant provider is required")
	}
	if deps.Strategies == nil {
		return nil, fmt.Errorf("strategy source is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if deps.Logger == nil {
		deps.Logger = noopLogger{}
	}
	return &Engine{
		provider:   deps.Provider,
		strategies: deps.Strategies,
		dispatcher: deps.Dispatcher,
		recorder:   deps.Recorder,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}, nil
}

// Busy reports whether a cycle is running.
func (e *Engine) Busy() bool {
	return e.busy.Load()
}

// RunCycle runs one decision cycle end to end.
//
// Per-plant, per-pot and per-pump failures are logged and recorded in the
// report; they never fail the cycle. The only error is ErrCycleInProgress.
func (e *Engine) RunCycle(ctx context.Context) (CycleReport, error) {
	if !e.busy.CompareAndSwap(false, true) {
		e.metrics.cycleBusy()
		return CycleReport{}, ErrCycleInProgress
	}
	defer e.busy.Store(false)

	report := CycleReport{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Commands:  []actuation.Command{},
		Skipped:   []SkippedPot{},
	}
	log := logWith(e.logger, "cycle_id", report.ID)

	plants, err := e.provider.ListPlants(ctx)
	if err != nil {
		log.Warn("plant snapshot unavailable, skipping cycle", "error", err)
		plants = nil
	}
	report.Plants = len(plants)

	if len(plants) == 0 {
		log.Info("no plants found, nothing to water")
		return e.finish(report, OutcomeNoop), nil
	}

	active, strategyErr := e.strategies.Active()
	if strategyErr != nil {
		log.Error("no active strategy, plants get zero duration", "error", strategyErr)
	} else {
		report.Strategy = active.Key()
	}

	groups := groupByPot(plants, log)
	report.Pots = len(groups)

	for _, g := range groups {
		durations := make([]int, 0, len(g.plants))
		for _, p := range g.plants {
			seconds, err := plantDuration(active, strategyErr, p)
			if err != nil {
				report.PlantErrors++
				log.Warn("plant duration failed, using 0",
					"plant_id", p.ID,
					"pot_id", g.pot.ID,
					"stage", "duration",
					"error", err,
				)
			}
			durations = append(durations, seconds)
		}

		cmd, skip := potCommand(g.pot, reduce(durations))
		if skip != nil {
			report.Skipped = append(report.Skipped, *skip)
			e.metrics.potSkipped(skip.Reason)
			if skip.Reason == SkipZeroDuration {
				log.Debug("pot needs no water", "pot_id", skip.PotID)
			} else {
				log.Warn("pot skipped",
					"pot_id", skip.PotID,
					"pump_id", skip.PumpID,
					"reason", string(skip.Reason),
					"error", skip.Error,
				)
			}
			continue
		}
		report.Commands = append(report.Commands, cmd)
	}

	sort.Slice(report.Commands, func(i, j int) bool {
		return report.Commands[i].PumpID < report.Commands[j].PumpID
	})

	summary := e.dispatcher.Dispatch(ctx, report.Commands)
	report.Sent = summary.Sent
	report.Failed = summary.Failed
	report.LocalOnly = summary.Skipped
	e.metrics.dispatched(summary)

	outcome := OutcomeCompleted
	if summary.Failed > 0 {
		outcome = OutcomeDegraded
	}
	return e.finish(report, outcome), nil
}

func (e *Engine) finish(report CycleReport, outcome Outcome) CycleReport {
	report.Outcome = outcome
	report.Duration = time.Since(report.StartedAt)

	e.metrics.cycleDone(outcome, report.Duration)
	if e.recorder != nil {
		e.recorder.RecordCycle(report)
	}

	e.logger.Info("cycle finished",
		"cycle_id", report.ID,
		"outcome", string(outcome),
		"plants", report.Plants,
		"pots", report.Pots,
		"commands", len(report.Commands),
		"sent", report.Sent,
		"failed", report.Failed,
		"skipped_pots", len(report.Skipped),
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report
}

// potGroup is the plants sharing one pot.
type potGroup struct {
	pot    *plant.Pot
	plants []plant.Plant
}

// groupByPot groups plants by pot ID, keeping first-seen order. Plants
// without a pot are logged and dropped.
func groupByPot(plants []plant.Plant, log Logger) []*potGroup {
	byID := make(map[string]*potGroup)
	var order []*potGroup

	for _, p := range plants {
		if p.Pot == nil || p.Pot.ID == "" {
			log.Warn("plant has no pot, ignoring", "plant_id", p.ID, "stage", "group")
			continue
		}
		g, ok := byID[p.Pot.ID]
		if !ok {
			g = &potGroup{pot: p.Pot}
			byID[p.Pot.ID] = g
			order = append(order, g)
		}
		g.plants = append(g.plants, p)
	}
	return order
}

// plantDuration looks up one plant's duration. Any error yields 0.
func plantDuration(active strategy.Strategy, strategyErr error, p plant.Plant) (int, error) {
	if strategyErr != nil {
		return 0, strategyErr
	}
	if !p.MoistureState.Valid() {
		return 0, fmt.Errorf("%w: %q", plant.ErrInvalidMoistureState, p.MoistureState)
	}
	return active.Duration(p.MoistureState), nil
}

// reduce picks the pot duration: the smallest strictly positive duration,
// or the smallest duration when none is positive. An empty slice yields 0.
func reduce(durations []int) int {
	minPositive, minAll := 0, 0
	for i, d := range durations {
		if i == 0 || d < minAll {
			minAll = d
		}
		if d > 0 && (minPositive == 0 || d < minPositive) {
			minPositive = d
		}
	}
	if minPositive > 0 {
		return minPositive
	}
	return minAll
}

// potCommand builds the command for a pot, or explains why there is none.
func potCommand(pot *plant.Pot, seconds int) (actuation.Command, *SkippedPot) {
	if seconds <= 0 {
		return actuation.Command{}, &SkippedPot{PotID: pot.ID, Reason: SkipZeroDuration}
	}
	if pot.Pump == nil {
		return actuation.Command{}, &SkippedPot{
			PotID:  pot.ID,
			Reason: SkipNoPump,
			Error:  plant.ErrPumpMissing.Error(),
		}
	}

	channel, err := pot.Pump.ChannelNumber()
	if err != nil {
		return actuation.Command{}, &SkippedPot{
			PotID:  pot.ID,
			PumpID: pot.Pump.ID,
			Reason: SkipInvalidChannel,
			Error:  err.Error(),
		}
	}

	return actuation.Command{
		Channel:         channel,
		PumpID:          pot.Pump.ID,
		DurationSeconds: seconds,
	}, nil
}

// cycleLogger prefixes every message with the cycle's attributes.
type cycleLogger struct {
	l     Logger
	attrs []any
}

func logWith(l Logger, attrs ...any) Logger {
	return cycleLogger{l: l, attrs: attrs}
}

func (c cycleLogger) join(args []any) []any {
	return append(c.attrs[:len(c.attrs):len(c.attrs)], args...)
}

func (c cycleLogger) Debug(msg string, args ...any) { c.l.Debug(msg, c.join(args)...) }
func (c cycleLogger) Info(msg string, args ...any)  { c.l.Info(msg, c.join(args)...) }
func (c cycleLogger) Warn(msg string, args ...any)  { c.l.Warn(msg, c.join(args)...) }
func (c cycleLogger) Error(msg string, args ...any) { c.l.Error(msg, c.join(args)...) }
