package forecast

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below via errors.Is.
var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrComputation      = errors.New("computation failed")

	errNotFinite = errors.New("result is not finite")
)

// InsufficientDataError reports that a model was handed fewer bars than it needs.
type InsufficientDataError struct {
	Model ModelID
	Have  int
	Need  int
}

func (e *InsufficientDataError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("insufficient data: need at least %d bars, have %d", e.Need, e.Have)
	}
	return fmt.Sprintf("%s: insufficient data: need at least %d bars, have %d", e.Model, e.Need, e.Have)
}

func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }

// InvalidParameterError reports a parameter outside its allowed range.
type InvalidParameterError struct {
	Name   string
	Value  any
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%v: %s", e.Name, e.Value, e.Reason)
}

func (e *InvalidParameterError) Is(target error) bool { return target == ErrInvalidParameter }

// ComputationError wraps a numeric failure with the model and input size that produced it.
type ComputationError struct {
	Model ModelID
	Bars  int
	Err   error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("%s over %d bars: %v", e.Model, e.Bars, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }

func (e *ComputationError) Is(target error) bool { return target == ErrComputation }

func positive(name string, v int) error {
	if v <= 0 {
		return &InvalidParameterError{Name: name, Value: v, Reason: "must be positive"}
	}
	return nil
}
