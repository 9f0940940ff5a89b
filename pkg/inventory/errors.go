package inventory

import (
	"errors"
	"fmt"
)

var (
	ErrMissingField        = errors.New("missing field")
	ErrInvalidServiceShape = errors.New("invalid service shape")
)

// MissingFieldError reports a required attribute that is absent or not of
// the expected type. Server is empty for document-level fields.
type MissingFieldError struct {
	Server string
	Field  string
}

func (e *MissingFieldError) Error() string {
	if e == nil {
		return ""
	}
	if e.Server == "" {
		return fmt.Sprintf("missing field %q", e.Field)
	}
	return fmt.Sprintf("server %q: missing field %q", e.Server, e.Field)
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}

// InvalidServiceShapeError reports a service table that cannot be decoded
// into a ServiceRecord.
type InvalidServiceShapeError struct {
	Server  string
	Service string
	Err     error
}

func (e *InvalidServiceShapeError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("server %q service %q: invalid service", e.Server, e.Service)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidServiceShapeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *InvalidServiceShapeError) Is(target error) bool {
	return target == ErrInvalidServiceShape
}
