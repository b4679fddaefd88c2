package device

import (
	"errors"
	"fmt"
)

var (
	// ErrKernelNotFound is returned when the kernel source cannot be read.
	ErrKernelNotFound = errors.New("kernel source not found")

	// ErrEntryUnresolved is returned when the entry symbol is missing from
	// the source or has no executable port.
	ErrEntryUnresolved = errors.New("entry symbol unresolved")

	// ErrBindingMismatch is returned when the bindings do not match the
	// signature of the resolved entry point.
	ErrBindingMismatch = errors.New("binding mismatch")

	// ErrInvalidGeometry is returned for launch geometries that cannot be
	// dispatched.
	ErrInvalidGeometry = errors.New("invalid launch geometry")

	// ErrReleased is returned by Execute after Release.
	ErrReleased = errors.New("plan released")
)

// Error describes a failed device operation on one kernel.
type Error struct {
	Op     string
	Kernel Kernel
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("device %s %s: %v", e.Op, e.Kernel, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op string, k Kernel, err error) error {
	return &Error{Op: op, Kernel: k, Err: err}
}
