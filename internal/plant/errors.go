package plant

import "errors"

// Domain errors for the plant package.
var (
	// ErrInvalidChannel is returned when a pump channel is not a positive integer.
	ErrInvalidChannel = errors.New("plant: invalid pump channel")

	// ErrPumpMissing is returned when a pot has no resolvable pump.
	ErrPumpMissing = errors.New("plant: pot has no pump")

	// ErrInvalidMoistureState is returned for values outside the four known states.
	ErrInvalidMoistureState = errors.New("plant: invalid moisture state")

	// ErrProviderUnavailable is returned when the state provider cannot be reached.
	ErrProviderUnavailable = errors.New("plant: state provider unavailable")
)
