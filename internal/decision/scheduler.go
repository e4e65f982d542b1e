package decision

import (
	"context"
	"errors"
	"time"
)

const defaultInterval = 5 * time.Second

// Cycler runs one cycle. *Engine satisfies it.
type Cycler interface {
	RunCycle(ctx context.Context) (CycleReport, error)
}

// Scheduler triggers a cycle at a fixed interval.
//
// Cycles run on the scheduler goroutine, so ticks never overlap each other;
// a tick that arrives while a manual cycle holds the engine is skipped.
type Scheduler struct {
	cycler   Cycler
	interval time.Duration
	logger   Logger
}

// NewScheduler creates a scheduler. A non-positive interval uses 5s.
func NewScheduler(cycler Cycler, interval time.Duration, logger Logger) *Scheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Scheduler{cycler: cycler, interval: interval, logger: logger}
}

// Interval returns the trigger interval.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// Run runs a cycle immediately and then on every tick until ctx is done.
// It always returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval.String())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.trigger(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.trigger(ctx)
		}
	}
}

func (s *Scheduler) trigger(ctx context.Context) {
	if _, err := s.cycler.RunCycle(ctx); err != nil {
		if errors.Is(err, ErrCycleInProgress) {
			s.logger.Debug("previous cycle still running, tick skipped")
			return
		}
		s.logger.Error("cycle failed", "error", err)
	}
}
