package core

import (
	"errors"
	"fmt"
	"strings"
)

// FailureKind classifies a business-rule rejection. Every kind is recoverable
// and reported to the caller; none crashes the process.
type FailureKind string

const (
	MissingField         FailureKind = "MissingField"
	NonPositiveAmount    FailureKind = "NonPositiveAmount"
	DuplicateInvoice     FailureKind = "DuplicateInvoice"
	DuplicateCheckNumber FailureKind = "DuplicateCheckNumber"
	OverpaymentAttempt   FailureKind = "OverpaymentAttempt"
	AllocationMismatch   FailureKind = "AllocationMismatch"
	InvalidPaymentDate   FailureKind = "InvalidPaymentDate"
	UnbalancedEntry      FailureKind = "UnbalancedEntry"
	VoidAfterPayment     FailureKind = "VoidAfterPayment"
)

// Failure is a single rejected check: what rule failed, on which field.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Field   string      `json:"field,omitempty"`
	Message string      `json:"message"`
}

// ValidationError accumulates every failed check for one request so callers
// can report all problems at once. Checks never short-circuit.
type ValidationError struct {
	Failures []Failure
}

func (e *ValidationError) Error() string {
	if len(e.Failures) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		if f.Field != "" {
			msgs[i] = fmt.Sprintf("%s (%s): %s", f.Kind, f.Field, f.Message)
		} else {
			msgs[i] = fmt.Sprintf("%s: %s", f.Kind, f.Message)
		}
	}
	return strings.Join(msgs, "; ")
}

func (e *ValidationError) Add(kind FailureKind, field, message string) {
	e.Failures = append(e.Failures, Failure{Kind: kind, Field: field, Message: message})
}

func (e *ValidationError) Addf(kind FailureKind, field, format string, args ...any) {
	e.Add(kind, field, fmt.Sprintf(format, args...))
}

// ErrOrNil returns the error if any failure accumulated, nil otherwise.
// A typed-nil *ValidationError must never escape as a non-nil error.
func (e *ValidationError) ErrOrNil() error {
	if len(e.Failures) == 0 {
		return nil
	}
	return e
}

// Fail builds a single-failure ValidationError.
func Fail(kind FailureKind, field, message string) *ValidationError {
	return &ValidationError{Failures: []Failure{{Kind: kind, Field: field, Message: message}}}
}

// AsValidationError unwraps err into a *ValidationError, if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
