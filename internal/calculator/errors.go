package calculator

import (
	"errors"
	"fmt"
)

// Sentinel errors. Typed errors below unwrap to these so callers can use errors.Is.
var (
	ErrInvalidRange   = errors.New("invalid range")
	ErrDivisionByZero = errors.New("division by zero")
)

// RangeError reports an input outside its regulatory domain.
type RangeError struct {
	Field  string
	Reason string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid range: %s %s", e.Field, e.Reason)
}

func (e *RangeError) Unwrap() error { return ErrInvalidRange }

// DivisionByZeroError reports a denominator that is zero or negative.
type DivisionByZeroError struct {
	Quantity string
}

func (e *DivisionByZeroError) Error() string {
	return fmt.Sprintf("division by zero: %s must be greater than zero", e.Quantity)
}

func (e *DivisionByZeroError) Unwrap() error { return ErrDivisionByZero }

func rangeErr(field, reason string) error {
	return &RangeError{Field: field, Reason: reason}
}

func zeroDenominator(quantity string) error {
	return &DivisionByZeroError{Quantity: quantity}
}
