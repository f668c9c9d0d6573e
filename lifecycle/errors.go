package lifecycle

import (
	"errors"
	"fmt"

	"todo-ledger/core/token"
)

// OperationError is returned by every failed create, load or complete.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("operation failed: %v", e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// UserMessage is the single notification shown for err. Validation failures
// get their specific message; everything else reads
// "operation failed: <reason>".
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ve *token.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	var oe *OperationError
	if errors.As(err, &oe) {
		return oe.Error()
	}
	return fmt.Sprintf("operation failed: %v", err)
}
