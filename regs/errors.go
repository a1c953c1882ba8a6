package regs

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMask is a set of register write failure kinds. Failures of several
// writes are merged by OR-ing their kinds, so a caller learns that some write
// failed and what kinds of failures happened, but not which register.
type ErrMask uint32

// Failure kinds.
const (
	ErrOutOfRange ErrMask = 1 << iota
	ErrOverflow
	ErrReadOnly
	ErrUnknown
)

var errMaskNames = []string{"out of range", "overflow", "read only", "unknown"}

func (m ErrMask) Error() string {
	var kinds []string

	for i, name := range errMaskNames {
		if m&(1<<i) != 0 {
			kinds = append(kinds, name)
		}
	}

	return "register write failed: " + strings.Join(kinds, ", ")
}

// Is reports whether target is an ErrMask sharing a kind with m.
func (m ErrMask) Is(target error) bool {
	var t ErrMask
	if !errors.As(target, &t) {
		return false
	}

	return m&t != 0
}

// Add merges the kind of err into the mask. A nil err is ignored.
func (m *ErrMask) Add(err error) {
	if err == nil {
		return
	}

	var we *WriteError
	if errors.As(err, &we) {
		*m |= we.Kind
		return
	}

	var other ErrMask
	if errors.As(err, &other) {
		*m |= other
		return
	}

	*m |= ErrUnknown
}

// Err returns nil if no failure was merged, or the mask itself.
func (m ErrMask) Err() error {
	if m == 0 {
		return nil
	}

	return m
}

// WriteError describes a single failed register write.
type WriteError struct {
	Kind   ErrMask
	Target string
	Value  uint32
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write 0x%x to %s: %s", e.Value, e.Target, e.Kind.Error())
}

// Unwrap exposes the failure kind.
func (e *WriteError) Unwrap() error {
	return e.Kind
}
