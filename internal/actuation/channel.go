package actuation

import (
	"context"
	"fmt"
)

// Channel delivers one payload to one destination.
//
// Delivery is fire-and-forget: a nil error means the transport accepted
// the message, not that the pump acted on it.
type Channel interface {
	Send(ctx context.Context, destination, payload string) error
}

// ChannelFunc adapts a function to the Channel interface.
type ChannelFunc func(ctx context.Context, destination, payload string) error

// Send calls f(ctx, destination, payload).
func (f ChannelFunc) Send(ctx context.Context, destination, payload string) error {
	return f(ctx, destination, payload)
}

// Publisher is the subset of the MQTT client used for commands.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte, qos byte, retained bool) error
}

// MQTTChannel sends commands as MQTT messages, one topic per destination.
// Messages are never retained so a reconnecting pump does not replay an
// old command.
type MQTTChannel struct {
	publisher Publisher
	qos       byte
}

// NewMQTTChannel creates a channel publishing with the given QoS.
func NewMQTTChannel(publisher Publisher, qos byte) *MQTTChannel {
	return &MQTTChannel{publisher: publisher, qos: qos}
}

// Send publishes payload to the destination topic.
func (c *MQTTChannel) Send(ctx context.Context, destination, payload string) error {
	if err := c.publisher.Publish(ctx, destination, []byte(payload), c.qos, false); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDeliveryFailed, destination, err)
	}
	return nil
}
