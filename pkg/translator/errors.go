package translator

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupported is matched by every *UnsupportedError.
	ErrUnsupported        = errors.New("unsupported construct")
	ErrInvalidInstruction = errors.New("invalid instruction")
	ErrYield              = errors.New("invalid continuation")
)

// UnsupportedError names a source construct the translator cannot lower.
// Translation stops at the first one.
type UnsupportedError struct {
	Construct string
}

func (e *UnsupportedError) Error() string { return "unsupported " + e.Construct }

func (e *UnsupportedError) Is(target error) bool { return target == ErrUnsupported }

func unsupported(format string, args ...any) error {
	return &UnsupportedError{Construct: fmt.Sprintf(format, args...)}
}

func invalid(err error) error { return fmt.Errorf("%w: %w", ErrInvalidInstruction, err) }
