package decision

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nerrad567/gray-logic-irrigation/internal/actuation"
)

const metricsNamespace = "irrigation"

// outcomeBusy labels triggers rejected by the busy guard.
const outcomeBusy = "busy"

// Metrics holds the Prometheus collectors for decision cycles.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	cycles           *prometheus.CounterVec
	cycleDuration    prometheus.Histogram
	commands         prometheus.Counter
	dispatchFailures prometheus.Counter
	potsSkipped      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cycles_total",
			Help:      "Decision cycles by outcome.",
		}, []string{"outcome"}),
		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of completed decision cycles.",
			Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		commands: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "commands_total",
			Help:      "Watering commands handed to the dispatcher.",
		}),
		dispatchFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "dispatch_failures_total",
			Help:      "Watering commands that failed to send.",
		}),
		potsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "pots_skipped_total",
			Help:      "Pots that produced no command, by reason.",
		}, []string{"reason"}),
	}
}

func (m *Metrics) cycleDone(outcome Outcome, d time.Duration) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(string(outcome)).Inc()
	m.cycleDuration.Observe(d.Seconds())
}

func (m *Metrics) cycleBusy() {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(outcomeBusy).Inc()
}

func (m *Metrics) potSkipped(reason SkipReason) {
	if m == nil {
		return
	}
	m.potsSkipped.WithLabelValues(string(reason)).Inc()
}

func (m *Metrics) dispatched(s actuation.Summary) {
	if m == nil {
		return
	}
	m.commands.Add(float64(len(s.Results)))
	m.dispatchFailures.Add(float64(s.Failed))
}
