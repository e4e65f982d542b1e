// Package actuation turns watering commands into messages for the pumps.
//
// The wire format is fixed by the pump firmware:
//
//	destination: actuator.<pumpId>.water
//	payload:     [WATER]<channel> <durationSeconds>
//
// Channel abstracts the transport; MQTTChannel publishes each command on
// the destination topic. Dispatcher sends a whole command list with one
// bounded, independently timed attempt per pump, so one unreachable pump
// never delays the others. In local mode nothing is sent.
package actuation
