package domain

import (
	"errors"
	"fmt"
)

// ErrorKind partitions send failures by how the engine must react.
type ErrorKind string

const (
	// ErrKindValidation marks malformed input rejected before any send.
	ErrKindValidation ErrorKind = "validation"
	// ErrKindAuthentication marks credential rejection. Fatal: the run
	// aborts because every subsequent send would fail identically.
	ErrKindAuthentication ErrorKind = "authentication"
	// ErrKindConnectivity marks network-level failures (dial, reset,
	// timeout). Retryable.
	ErrKindConnectivity ErrorKind = "connectivity"
	// ErrKindTransientSend marks a 4xx server rejection. Retryable.
	ErrKindTransientSend ErrorKind = "transient_send"
	// ErrKindPermanentSend marks a 5xx recipient rejection. Recorded
	// as a failure for that recipient; the run continues.
	ErrKindPermanentSend ErrorKind = "permanent_send"
	// ErrKindPersistence marks quota state that could not be saved.
	// Fatal: continuing would risk exceeding the provider's limit.
	ErrKindPersistence ErrorKind = "persistence"
)

// Retryable reports whether a failure of this kind should be retried
// against the same recipient.
func (k ErrorKind) Retryable() bool {
	return k == ErrKindConnectivity || k == ErrKindTransientSend
}

// Fatal reports whether a failure of this kind aborts the whole run.
func (k ErrorKind) Fatal() bool {
	return k == ErrKindAuthentication || k == ErrKindPersistence
}

// ClassifiedError wraps an underlying error with its ErrorKind so the
// scheduler and retry loop can branch on kind without inspecting
// transport-specific details.
type ClassifiedError struct {
	Kind ErrorKind
	Err  error
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// Classify wraps err with kind. Returns nil for a nil err.
func Classify(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Kind: kind, Err: err}
}

// KindOf extracts the ErrorKind from err. Unclassified errors default
// to transient_send so an unknown failure gets retried rather than
// silently dropped.
func KindOf(err error) ErrorKind {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ErrKindTransientSend
}
