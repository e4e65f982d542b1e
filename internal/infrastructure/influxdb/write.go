package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementDispatch = "irrigation_dispatch"
	MeasurementCycle    = "irrigation_cycle"
)

// DispatchRecord describes one actuator command outcome.
type DispatchRecord struct {
	PumpID          string
	Channel         int
	DurationSeconds int
	// Outcome is "sent", "failed" or "skipped_local".
	Outcome string
	Mode    string
	Time    time.Time
}

// CycleRecord summarises one decision cycle.
type CycleRecord struct {
	CycleID  string
	Outcome  string
	Commands int
	Failed   int
	Skipped  int
	Duration time.Duration
	Time     time.Time
}

// WriteDispatch records a single actuator command outcome.
//
// Example:
//
//	client.WriteDispatch(influxdb.DispatchRecord{PumpID: "pump-7", Channel: 7,
//	    DurationSeconds: 5, Outcome: "sent", Mode: "remote", Time: time.Now()})
func (c *Client) WriteDispatch(r DispatchRecord) {
	c.WritePointWithTime(MeasurementDispatch,
		map[string]string{
			"pump_id": r.PumpID,
			"outcome": r.Outcome,
			"mode":    r.Mode,
		},
		map[string]interface{}{
			"channel":    r.Channel,
			"duration_s": r.DurationSeconds,
		},
		orNow(r.Time),
	)
}

// WriteCycle records a decision cycle summary.
func (c *Client) WriteCycle(r CycleRecord) {
	c.WritePointWithTime(MeasurementCycle,
		map[string]string{
			"outcome": r.Outcome,
		},
		map[string]interface{}{
			"cycle_id":    r.CycleID,
			"commands":    r.Commands,
			"failed":      r.Failed,
			"skipped":     r.Skipped,
			"duration_ms": r.Duration.Milliseconds(),
		},
		orNow(r.Time),
	)
}

// WritePoint writes a custom point stamped with the current time.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a custom point with an explicit timestamp.
// It is a no-op when the client is not connected.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
