package strategy

import "github.com/nerrad567/gray-logic-irrigation/internal/plant"

// DefaultKey is the reserved strategy key that is always available.
const DefaultKey = "default"

// Strategy maps a moisture state to a watering duration in seconds.
//
// Duration is pure and total over the four moisture states. Callers must
// reject states outside that set before calling it.
type Strategy interface {
	Key() string
	Name() string
	Duration(state plant.MoistureState) int
}

// definitionStrategy is the configuration-backed Strategy.
type definitionStrategy struct {
	key string
	def Definition
}

// New binds a definition to its key.
func New(key string, def Definition) Strategy {
	return definitionStrategy{key: key, def: def}
}

func (s definitionStrategy) Key() string  { return s.key }
func (s definitionStrategy) Name() string { return s.def.Name }

func (s definitionStrategy) Duration(state plant.MoistureState) int {
	seconds, _ := s.def.Durations.For(state)
	return seconds
}

// placeholderDefinition backs "default" when the document does not define
// it. It never waters.
var placeholderDefinition = Definition{
	Name:        "Placeholder",
	Description: "Built-in fallback used until a strategy document defines \"default\"; waters nothing.",
}
