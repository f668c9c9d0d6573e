// Package wallet talks to the action submission facility that builds,
// signs with the user's funds and broadcasts ledger transactions.
package wallet

import (
	"context"
	"strings"

	"todo-ledger/core/token"
)

// Output declares a new value-bearing output.
type Output struct {
	Satoshis      int64
	LockingScript []byte
	Description   string
}

// Input declares the redemption of an existing output.
type Input struct {
	Outpoint        token.Outpoint
	LockingScript   []byte
	Satoshis        int64
	UnlockingScript []byte
	Description     string
}

// CreateActionArgs is a declarative transaction request. Topics name bridge
// destinations that learn about the created and spent outputs.
type CreateActionArgs struct {
	Description string
	Outputs     []Output
	Inputs      []Input
	Topics      []string
}

// CreateActionResult identifies the committed transaction. Created outputs
// are numbered in declaration order starting at zero.
type CreateActionResult struct {
	TxID            string
	BridgeReference string
}

// OutputReference returns the reference of the i-th declared output. The
// txid is lowercased like every other reference.
func (r CreateActionResult) OutputReference(i int) token.Outpoint {
	return token.Outpoint{TxID: strings.ToLower(r.TxID), Vout: uint32(i)}
}

// Submitter commits actions to the ledger. Failures are *token.SubmissionError.
type Submitter interface {
	CreateAction(ctx context.Context, args CreateActionArgs) (*CreateActionResult, error)
}
