package strategy

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-irrigation/internal/plant"
)

// Definition is a named mapping from moisture state to watering seconds.
type Definition struct {
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	Durations   Durations `json:"durations" yaml:"durations"`
}

// Durations holds one non-negative duration in seconds per moisture state.
//
// Decoding requires all four states to be present; a missing, null,
// negative or unrecognised entry is rejected with ErrInvalidDefinition.
type Durations struct {
	Thirsty     int `json:"thirsty" yaml:"thirsty"`
	Moist       int `json:"moist" yaml:"moist"`
	Overwatered int `json:"overwatered" yaml:"overwatered"`
	Unknown     int `json:"unknown" yaml:"unknown"`
}

// For returns the configured seconds for state. ok is false for values
// outside the four known states.
func (d Durations) For(state plant.MoistureState) (seconds int, ok bool) {
	switch state {
	case plant.StateThirsty:
		return d.Thirsty, true
	case plant.StateMoist:
		return d.Moist, true
	case plant.StateOverwatered:
		return d.Overwatered, true
	case plant.StateUnknown:
		return d.Unknown, true
	}
	return 0, false
}

func (d *Durations) slot(state plant.MoistureState) *int {
	switch state {
	case plant.StateThirsty:
		return &d.Thirsty
	case plant.StateMoist:
		return &d.Moist
	case plant.StateOverwatered:
		return &d.Overwatered
	case plant.StateUnknown:
		return &d.Unknown
	}
	return nil
}

// Validate rejects negative durations.
func (d Durations) Validate() error {
	for _, state := range plant.AllMoistureStates {
		if v, _ := d.For(state); v < 0 {
			return fmt.Errorf("%w: duration for %s is negative (%d)", ErrInvalidDefinition, state, v)
		}
	}
	return nil
}

// UnmarshalJSON decodes a durations object, requiring every state.
func (d *Durations) UnmarshalJSON(data []byte) error {
	var raw map[string]*int
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: durations: %w", ErrInvalidDefinition, err)
	}
	return d.fromMap(raw)
}

// UnmarshalYAML decodes a durations mapping, requiring every state.
func (d *Durations) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]*int
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("%w: durations: %w", ErrInvalidDefinition, err)
	}
	return d.fromMap(raw)
}

func (d *Durations) fromMap(raw map[string]*int) error {
	var out Durations
	seen := make(map[plant.MoistureState]bool, len(raw))

	for key, value := range raw {
		state, err := plant.ParseMoistureState(key)
		if err != nil {
			return fmt.Errorf("%w: unknown moisture state %q in durations", ErrInvalidDefinition, key)
		}
		if seen[state] {
			return fmt.Errorf("%w: duplicate duration for %s", ErrInvalidDefinition, state)
		}
		seen[state] = true
		if value == nil {
			return fmt.Errorf("%w: duration for %s is empty", ErrInvalidDefinition, state)
		}
		*out.slot(state) = *value
	}

	var missing []string
	for _, state := range plant.AllMoistureStates {
		if !seen[state] {
			missing = append(missing, strings.ToLower(string(state)))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing durations for %s", ErrInvalidDefinition, strings.Join(missing, ", "))
	}

	if err := out.Validate(); err != nil {
		return err
	}
	*d = out
	return nil
}

// definitionWire distinguishes an absent durations block from an all-zero one.
type definitionWire struct {
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description" yaml:"description"`
	Durations   *Durations `json:"durations" yaml:"durations"`
}

func (w definitionWire) definition() (Definition, error) {
	if w.Durations == nil {
		return Definition{}, fmt.Errorf("%w: durations block is required", ErrInvalidDefinition)
	}
	return Definition{Name: w.Name, Description: w.Description, Durations: *w.Durations}, nil
}

// UnmarshalJSON decodes a definition, requiring a complete durations block.
func (def *Definition) UnmarshalJSON(data []byte) error {
	var w definitionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out, err := w.definition()
	if err != nil {
		return err
	}
	*def = out
	return nil
}

// UnmarshalYAML decodes a definition, requiring a complete durations block.
func (def *Definition) UnmarshalYAML(node *yaml.Node) error {
	var w definitionWire
	if err := node.Decode(&w); err != nil {
		return err
	}
	out, err := w.definition()
	if err != nil {
		return err
	}
	*def = out
	return nil
}

// Validate checks a definition built in code rather than decoded.
func (def Definition) Validate() error {
	return def.Durations.Validate()
}
