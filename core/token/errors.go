package token

import (
	"errors"
	"fmt"
)

// Err is a simple string error helper.
type Err string

func (e Err) Error() string { return string(e) }

var (
	ErrValidation        = Err("validation failed")
	ErrKeyUnavailable    = Err("key scope unavailable")
	ErrDecryption        = Err("unable to decrypt payload")
	ErrBridgeUnavailable = Err("bridge unavailable")
	ErrUnlockFailure     = Err("unable to unlock record")
	ErrSubmission        = Err("action submission failed")
	ErrNotFound          = Err("record not found")
	ErrDuplicateRecord   = Err("record already exists")
	ErrForeignScript     = Err("locking script is not a record of this protocol")
	ErrInvalidTransition = Err("invalid state transition")
	ErrInFlight          = Err("operation already in progress for record")
)

// ValidationReason names why user input was rejected.
type ValidationReason string

const (
	EmptyTask    ValidationReason = "EmptyTask"
	EmptyAmount  ValidationReason = "EmptyAmount"
	AmountTooLow ValidationReason = "AmountTooLow"
	TaskTooLong  ValidationReason = "TaskTooLong"
)

// ValidationError rejects user input before any I/O happens.
type ValidationError struct {
	Reason  ValidationReason
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

// Is makes errors.Is(err, ErrValidation) hold for every ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// SubmissionError carries the human readable message returned by the
// action submission facility.
type SubmissionError struct {
	Message string
	Err     error
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrSubmission) hold for every SubmissionError.
func (e *SubmissionError) Is(target error) bool {
	return target == ErrSubmission
}

// Kind classifies err into the error taxonomy for notifications, metrics
// and diagnostic records.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrKeyUnavailable):
		return "key_unavailable"
	case errors.Is(err, ErrBridgeUnavailable):
		return "bridge_unavailable"
	case errors.Is(err, ErrUnlockFailure):
		return "unlock_failure"
	case errors.Is(err, ErrSubmission):
		return "submission"
	case errors.Is(err, ErrDecryption):
		return "decryption"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInFlight):
		return "in_flight"
	case errors.Is(err, ErrDuplicateRecord):
		return "duplicate"
	default:
		return "internal"
	}
}
