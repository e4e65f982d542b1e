package mqtt

// TopicPrefix is the base of every controller-owned topic.
//
// Actuator destinations ("actuator.<pumpId>.water") are not under this
// prefix; they are fixed by the pump firmware and built by the actuation
// package.
const TopicPrefix = "irrigation"

// Topics provides builders for the controller's own MQTT topics.
type Topics struct{}

// SystemStatus is the retained online/offline status topic.
//
// Example: irrigation/system/status
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// CycleCommand triggers a manual decision cycle when any message arrives.
//
// Example: irrigation/command/cycle
func (Topics) CycleCommand() string {
	return TopicPrefix + "/command/cycle"
}

// ReloadCommand triggers a strategy document reload.
//
// Example: irrigation/command/strategies/reload
func (Topics) ReloadCommand() string {
	return TopicPrefix + "/command/strategies/reload"
}
