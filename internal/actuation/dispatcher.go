package actuation

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defaultSendTimeout = 3 * time.Second
	defaultParallelism = 8
)

// Outcome of a single dispatch attempt.
type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped_local"
)

// Result records what happened to one command.
type Result struct {
	Command Command
	Outcome Outcome
	Err     error
	Mode    Mode
	At      time.Time
}

// Summary aggregates the results of one Dispatch call, in command order.
type Summary struct {
	Results []Result
	Sent    int
	Failed  int
	Skipped int
}

// Recorder receives every dispatch result. It must not block.
type Recorder interface {
	RecordDispatch(r Result)
}

// Logger is the logging interface used by the dispatcher.
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

// Options configures a Dispatcher. Zero values select defaults.
type Options struct {
	Mode        Mode
	SendTimeout time.Duration
	Parallelism int
	Logger      Logger
	Recorder    Recorder
}

// Dispatcher fans a command list out to a Channel.
//
// Each command is sent in its own goroutine (at most Parallelism at once)
// under its own timeout. A failed or hung send affects only its pump.
//
// Thread Safety: Dispatch is safe for concurrent use.
type Dispatcher struct {
	channel     Channel
	mode        Mode
	sendTimeout time.Duration
	parallelism int
	logger      Logger
	recorder    Recorder
}

// NewDispatcher creates a dispatcher sending through channel.
func NewDispatcher(channel Channel, opts Options) *Dispatcher {
	d := &Dispatcher{
		channel:     channel,
		mode:        opts.Mode,
		sendTimeout: opts.SendTimeout,
		parallelism: opts.Parallelism,
		logger:      opts.Logger,
		recorder:    opts.Recorder,
	}
	if d.mode == "" {
		d.mode = ModeRemote
	}
	if d.sendTimeout <= 0 {
		d.sendTimeout = defaultSendTimeout
	}
	if d.parallelism <= 0 {
		d.parallelism = defaultParallelism
	}
	if d.logger == nil {
		d.logger = noopLogger{}
	}
	return d
}

// Mode returns the operating mode.
func (d *Dispatcher) Mode() Mode { return d.mode }

// Dispatch sends every command. It never fails as a whole; per-command
// failures are logged and reported in the summary.
func (d *Dispatcher) Dispatch(ctx context.Context, commands []Command) Summary {
	results := make([]Result, len(commands))

	if d.mode != ModeRemote {
		for i, cmd := range commands {
			d.logger.Info("actuation disabled, command not sent",
				"mode", string(d.mode),
				"pump_id", cmd.PumpID,
				"destination", cmd.Destination(),
				"payload", cmd.Payload(),
			)
			results[i] = d.record(Result{Command: cmd, Outcome: OutcomeSkipped})
		}
		return summarise(results)
	}

	var g errgroup.Group
	g.SetLimit(d.parallelism)

	for i, cmd := range commands {
		g.Go(func() error {
			results[i] = d.send(ctx, cmd)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // goroutines never return errors

	return summarise(results)
}

func (d *Dispatcher) send(ctx context.Context, cmd Command) Result {
	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	if err := d.channel.Send(sendCtx, cmd.Destination(), cmd.Payload()); err != nil {
		d.logger.Error("dispatch failed",
			"pump_id", cmd.PumpID,
			"channel", cmd.Channel,
			"destination", cmd.Destination(),
			"error", err,
		)
		return d.record(Result{Command: cmd, Outcome: OutcomeFailed, Err: err})
	}

	d.logger.Debug("command sent",
		"pump_id", cmd.PumpID,
		"destination", cmd.Destination(),
		"payload", cmd.Payload(),
	)
	return d.record(Result{Command: cmd, Outcome: OutcomeSent})
}

func (d *Dispatcher) record(r Result) Result {
	r.Mode = d.mode
	r.At = time.Now()
	if d.recorder != nil {
		d.recorder.RecordDispatch(r)
	}
	return r
}

func summarise(results []Result) Summary {
	s := Summary{Results: results}
	for _, r := range results {
		switch r.Outcome {
		case OutcomeSent:
			s.Sent++
		case OutcomeFailed:
			s.Failed++
		case OutcomeSkipped:
			s.Skipped++
		}
	}
	return s
}
