package plant

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MoistureState is the externally computed classification of a plant's moisture.
type MoistureState string

// Moisture states.
const (
	StateMoist       MoistureState = "MOIST"
	StateThirsty     MoistureState = "THIRSTY"
	StateOverwatered MoistureState = "OVERWATERED"
	StateUnknown     MoistureState = "UNKNOWN"
)

// AllMoistureStates lists every valid state.
var AllMoistureStates = []MoistureState{StateThirsty, StateMoist, StateOverwatered, StateUnknown}

// Valid reports whether s is one of the four known states.
func (s MoistureState) Valid() bool {
	switch s {
	case StateMoist, StateThirsty, StateOverwatered, StateUnknown:
		return true
	}
	return false
}

// ParseMoistureState converts a case-insensitive state name.
func ParseMoistureState(raw string) (MoistureState, error) {
	s := MoistureState(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMoistureState, raw)
	}
	return s, nil
}

// Plant is one plant in the current snapshot.
type Plant struct {
	ID              string        `json:"id"`
	Name            string        `json:"name,omitempty"`
	IdealMoisture   float64       `json:"idealMoisture"`
	CurrentMoisture float64       `json:"currentMoisture"`
	MoistureState   MoistureState `json:"moistureState"`
	UpdatedAt       time.Time     `json:"updatedAt,omitzero"`

	// Pot is the owning pot. Nil when the plant is not potted.
	Pot *Pot `json:"pot,omitempty"`
}

// PotID returns the owning pot's ID, or "" when the plant has no pot.
func (p Plant) PotID() string {
	if p.Pot == nil {
		return ""
	}
	return p.Pot.ID
}

// Pot groups plants watered by a single pump.
type Pot struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Pump *Pump  `json:"pump,omitempty"`
}

// Pump is an actuator. Model, LifetimeHours and Temperature are
// informational and never affect watering decisions.
type Pump struct {
	ID string `json:"id"`

	// Channel is the actuator channel. When empty the pump ID is used.
	Channel string `json:"channel,omitempty"`

	Model         string  `json:"model,omitempty"`
	LifetimeHours float64 `json:"lifetimeHours,omitempty"`
	Temperature   float64 `json:"temperature,omitempty"`
}

// ChannelNumber returns the actuator channel as a positive integer.
func (p *Pump) ChannelNumber() (int, error) {
	raw := strings.TrimSpace(p.Channel)
	if raw == "" {
		raw = strings.TrimSpace(p.ID)
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: pump %q channel %q is not an integer", ErrInvalidChannel, p.ID, raw)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: pump %q channel %d is not positive", ErrInvalidChannel, p.ID, n)
	}
	return n, nil
}
