package decision

import "errors"

// ErrCycleInProgress is returned when a cycle is requested while another is
// still running.
var ErrCycleInProgress = errors.New("decision: cycle already in progress")
