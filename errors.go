package ffs

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per error kind enumerated by the design: usable
// directly with errors.Is(), mirroring the teacher's package-level
// error variables in errors.go.
var (
	ErrIO             = errors.New("flash i/o error")
	ErrCorrupt        = errors.New("corrupt record")
	ErrNotFound       = errors.New("path not found")
	ErrExists         = errors.New("already exists")
	ErrNotADirectory  = errors.New("not a directory")
	ErrIsADirectory   = errors.New("is a directory")
	ErrInvalid        = errors.New("invalid argument")
	ErrOutOfResources = errors.New("out of resources")
	ErrNotEnoughSpace = errors.New("not enough space")
	ErrUnexpected     = errors.New("internal assertion failed")
)

// Error wraps the sentinel for an operation with the operation name and an
// optional underlying cause, so callers get both errors.Is() compatibility
// and a readable message.
type Error struct {
	Op   string
	Kind error // one of the Err* sentinels above
	Err  error // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ffs: %s: %s: %s", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("ffs: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrNotFound) succeed against a returned *Error
// without callers needing to know about the wrapping.
func (e *Error) Is(target error) bool { return e.Kind == target }

func newErr(op string, kind error, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}
