package state

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument marks queries against positions outside the tree.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidState marks a mutation whose precondition does not hold.
	ErrInvalidState = errors.New("invalid state")
)

// Error describes a failed state operation. Mutations panic with *Error;
// queries return it.
type Error struct {
	Op  string
	Msg string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state %s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func invalidState(op, format string, args ...any) *Error {
	return &Error{Op: op, Msg: fmt.Sprintf(format, args...), Err: ErrInvalidState}
}

func invalidArgument(op, format string, args ...any) *Error {
	return &Error{Op: op, Msg: fmt.Sprintf(format, args...), Err: ErrInvalidArgument}
}
