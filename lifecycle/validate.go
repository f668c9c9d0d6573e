package lifecycle

import (
	"fmt"
	"strconv"
	"strings"

	"todo-ledger/bitcoin"
	"todo-ledger/codec"
	"todo-ledger/core/token"
)

// MaxTaskBytes is the longest task text whose sealed payload still fits in
// a locking script.
const MaxTaskBytes = bitcoin.MaxPayloadSize - codec.Overhead

// DefaultMinAmount is the smallest amount a task may lock, in satoshis.
const DefaultMinAmount int64 = 500

// CreateRequest is the raw user input for a new task.
type CreateRequest struct {
	Text   string
	Amount string
}

// validate checks a draft and returns its parsed amount. The AmountTooLow
// message is rendered from the same threshold that is enforced.
func validate(req CreateRequest, minAmount int64) (int64, error) {
	if strings.TrimSpace(req.Text) == "" {
		return 0, &token.ValidationError{Reason: token.EmptyTask, Message: "Enter a task description."}
	}
	if len(req.Text) > MaxTaskBytes {
		return 0, &token.ValidationError{
			Reason:  token.TaskTooLong,
			Message: fmt.Sprintf("The task description must be at most %d bytes.", MaxTaskBytes),
		}
	}
	raw := strings.TrimSpace(req.Amount)
	if raw == "" {
		return 0, &token.ValidationError{Reason: token.EmptyAmount, Message: "Enter an amount of satoshis to lock."}
	}
	amount, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &token.ValidationError{Reason: token.EmptyAmount, Message: "The amount must be a whole number of satoshis."}
	}
	if amount < minAmount {
		return 0, &token.ValidationError{
			Reason:  token.AmountTooLow,
			Message: fmt.Sprintf("The amount must be at least %d satoshis.", minAmount),
		}
	}
	return amount, nil
}
