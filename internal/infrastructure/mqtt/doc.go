// Package mqtt provides MQTT connectivity for the irrigation controller.
//
// The controller uses the broker for three things:
//   - publishing actuator commands to the pumps (fire-and-forget)
//   - a retained status topic with a Last Will for offline detection
//   - inbound admin commands (manual cycle, strategy reload)
//
// # Usage
//
//	client, err := mqtt.Connect(ctx, cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Publish(ctx, "actuator.pump-7.water", []byte("[WATER]7 5"), 0, false)
//
// TLS should be enabled for any broker reachable beyond localhost.
package mqtt
