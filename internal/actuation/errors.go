package actuation

import "errors"

// Domain errors for the actuation package.
var (
	// ErrDeliveryFailed wraps a transport error for a single destination.
	ErrDeliveryFailed = errors.New("actuation: delivery failed")

	// ErrInvalidMode is returned for an operating mode other than local or remote.
	ErrInvalidMode = errors.New("actuation: invalid mode")
)
