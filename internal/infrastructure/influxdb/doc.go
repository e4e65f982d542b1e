// Package influxdb records irrigation history in InfluxDB v2.
//
// Two measurements are written:
//   - irrigation_dispatch: one point per actuator command (tags pump_id,
//     outcome, mode; fields channel, duration_s)
//   - irrigation_cycle: one point per decision cycle (tag outcome; fields
//     cycle_id, commands, failed, skipped, duration_ms)
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // history recording is optional
//	}
//	defer client.Close()
//
//	client.WriteDispatch(influxdb.DispatchRecord{PumpID: "pump-7", Channel: 7,
//	    DurationSeconds: 5, Outcome: "sent", Mode: "remote"})
//
// Writes are non-blocking and batched according to batch_size and
// flush_interval; asynchronous failures are delivered via SetOnError.
package influxdb
