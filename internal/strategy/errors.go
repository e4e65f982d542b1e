package strategy

import (
	"errors"
	"fmt"
)

// Domain errors for the strategy package.
var (
	// ErrConfig is wrapped by every *ConfigError.
	ErrConfig = errors.New("strategy: configuration error")

	// ErrStrategyNotFound is returned when neither the active key nor
	// "default" resolves to a strategy.
	ErrStrategyNotFound = errors.New("strategy: active strategy not found")

	// ErrNotFound is returned when a strategy key does not exist.
	ErrNotFound = errors.New("strategy: not found")

	// ErrInUse is returned when removing the active strategy.
	ErrInUse = errors.New("strategy: in use")

	// ErrInvalidDefinition is returned when a definition or key fails validation.
	ErrInvalidDefinition = errors.New("strategy: invalid definition")
)

// ConfigError reports a strategy document that could not be read, parsed
// or validated. The previously loaded document stays in effect.
type ConfigError struct {
	Source string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("strategy: loading %s: %v", e.Source, e.Err)
}

// Unwrap exposes both ErrConfig and the underlying cause to errors.Is/As.
func (e *ConfigError) Unwrap() []error {
	return []error{ErrConfig, e.Err}
}
