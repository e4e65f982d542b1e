package actuation

import "fmt"

// Command is one watering instruction for one pump. Commands are built per
// cycle and never persisted.
type Command struct {
	Channel         int    `json:"channel"`
	PumpID          string `json:"pumpId"`
	DurationSeconds int    `json:"durationSeconds"`
}

// Payload renders the firmware wire format "[WATER]<channel> <seconds>".
func (c Command) Payload() string {
	return FormatPayload(c.Channel, c.DurationSeconds)
}

// Destination returns "actuator.<pumpId>.water".
func (c Command) Destination() string {
	return DestinationFor(c.PumpID)
}

// FormatPayload renders a water command. The format is fixed by the pump
// firmware and must not change.
func FormatPayload(channel, seconds int) string {
	return fmt.Sprintf("[WATER]%d %d", channel, seconds)
}

// DestinationFor returns the destination a pump listens on.
func DestinationFor(pumpID string) string {
	return "actuator." + pumpID + ".water"
}
