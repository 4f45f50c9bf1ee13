package engine

import (
	"errors"
	"fmt"
)

// UnsupportedCommandError is returned when a command reaches an engine
// that has no handler for it. This is the default arm of each engine's
// dispatch switch.
type UnsupportedCommandError struct {
	Scope   string
	Command string
}

func (e *UnsupportedCommandError) Error() string {
	return fmt.Sprintf("%s engine: unsupported command %s", e.Scope, e.Command)
}

// IsUnsupportedCommand reports whether err is an UnsupportedCommandError.
func IsUnsupportedCommand(err error) bool {
	var target *UnsupportedCommandError
	return errors.As(err, &target)
}
