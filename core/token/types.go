package token

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// PlaceholderText replaces the text of a record whose payload could not be
// decrypted. The record is still listed so the user can see and redeem it.
const PlaceholderText = "[error] Unable to decrypt task!"

// State is the lifecycle state of a task token.
type State string

const (
	StateDraft              State = "draft"
	StateSubmittingCreate   State = "submitting_create"
	StateActive             State = "active"
	StateSubmittingComplete State = "submitting_complete"
	StateRedeemed           State = "redeemed"
)

// A failed submission returns the record to the state it was submitted from.
var transitions = map[State][]State{
	StateDraft:              {StateSubmittingCreate},
	StateSubmittingCreate:   {StateActive, StateDraft},
	StateActive:             {StateSubmittingComplete},
	StateSubmittingComplete: {StateRedeemed, StateActive},
}

// CanBecome reports whether a record in state s may move to next.
func (s State) CanBecome(next State) bool {
	return slices.Contains(transitions[s], next)
}

// Outpoint identifies a ledger output: transaction id plus output index.
type Outpoint struct {
	TxID string `json:"txid"`
	Vout uint32 `json:"vout"`
}

// String renders the outpoint as "txid.vout".
func (o Outpoint) String() string {
	return fmt.Sprintf("%s.%d", o.TxID, o.Vout)
}

// IsZero reports whether the outpoint is unset.
func (o Outpoint) IsZero() bool {
	return o.TxID == "" && o.Vout == 0
}

// ParseOutpoint parses "txid.vout" (or "txid:vout").
func ParseOutpoint(s string) (Outpoint, error) {
	s = strings.TrimSpace(s)
	sep := strings.LastIndexAny(s, ".:")
	if sep <= 0 || sep == len(s)-1 {
		return Outpoint{}, fmt.Errorf("invalid outpoint %q: want txid.vout", s)
	}
	vout, err := strconv.ParseUint(s[sep+1:], 10, 32)
	if err != nil {
		return Outpoint{}, fmt.Errorf("invalid outpoint %q: bad output index: %w", s, err)
	}
	return Outpoint{TxID: strings.ToLower(s[:sep]), Vout: uint32(vout)}, nil
}

// TaskRecord is one task held as a value-bearing ledger output.
//
// Reference, LockingScript and Amount are copied from submission or bridge
// results and never changed afterwards.
type TaskRecord struct {
	Text          string   `json:"text"`
	Amount        int64    `json:"amount"`
	Reference     Outpoint `json:"reference"`
	LockingScript []byte   `json:"locking_script"`
	State         State    `json:"state"`
	// Undecryptable is set when Text holds PlaceholderText.
	Undecryptable bool `json:"undecryptable,omitempty"`
}

// Clone returns a deep copy so callers cannot alias the stored script bytes.
func (r TaskRecord) Clone() TaskRecord {
	c := r
	c.LockingScript = append([]byte(nil), r.LockingScript...)
	return c
}

// RawRecord is an owned output as reported by the bridge, before decryption.
type RawRecord struct {
	Amount        int64
	Reference     Outpoint
	LockingScript []byte
}
