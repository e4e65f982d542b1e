package actuation

import (
	"fmt"
	"strings"
)

// Mode gates whether commands reach the transport.
type Mode string

const (
	// ModeRemote sends every command.
	ModeRemote Mode = "remote"

	// ModeLocal computes and logs commands without sending them.
	ModeLocal Mode = "local"
)

// ParseMode parses a mode name. An empty string means remote.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeRemote:
		return ModeRemote, nil
	case ModeLocal:
		return ModeLocal, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}
