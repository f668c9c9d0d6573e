package wallet

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"slices"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"todo-ledger/bitcoin"
	"todo-ledger/core/token"
)

type ledgerOutput struct {
	ref      token.Outpoint
	satoshis int64
	script   []byte
	topics   []string
}

// MemoryLedger is an in-process ledger for one identity. It acts as both the
// submission facility and the bridge index, and checks every unlocking
// script before accepting a spend.
type MemoryLedger struct {
	mu       sync.Mutex
	identity *btcec.PublicKey
	outputs  []ledgerOutput
	spent    map[token.Outpoint]bool
	seq      uint32
}

// NewMemoryLedger returns an empty ledger owned by identity.
func NewMemoryLedger(identity *btcec.PublicKey) *MemoryLedger {
	return &MemoryLedger{identity: identity, spent: make(map[token.Outpoint]bool)}
}

// CreateAction validates and commits args.
func (l *MemoryLedger) CreateAction(ctx context.Context, args CreateActionArgs) (*CreateActionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, &token.SubmissionError{Message: "submission cancelled", Err: err}
	}
	if len(args.Inputs) == 0 && len(args.Outputs) == 0 {
		return nil, &token.SubmissionError{Message: "action has no inputs or outputs"}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tx := wire.NewMsgTx(2)
	for _, in := range args.Inputs {
		prev, ok := l.unspent(in.Outpoint)
		if !ok {
			return nil, &token.SubmissionError{Message: fmt.Sprintf("output %s is not spendable", in.Outpoint)}
		}
		if prev.satoshis != in.Satoshis || !bytes.Equal(prev.script, in.LockingScript) {
			return nil, &token.SubmissionError{Message: fmt.Sprintf("input %s does not match the ledger output", in.Outpoint)}
		}
		if err := bitcoin.VerifyUnlockingScript(prev.script, in.UnlockingScript, in.Outpoint, in.Satoshis); err != nil {
			return nil, &token.SubmissionError{Message: fmt.Sprintf("input %s rejected", in.Outpoint), Err: err}
		}
		op, err := bitcoin.WireOutPoint(in.Outpoint)
		if err != nil {
			return nil, &token.SubmissionError{Message: "invalid input", Err: err}
		}
		tx.AddTxIn(wire.NewTxIn(op, in.UnlockingScript, nil))
	}
	for _, o := range args.Outputs {
		if o.Satoshis <= 0 {
			return nil, &token.SubmissionError{Message: "output amount must be positive"}
		}
		tx.AddTxOut(wire.NewTxOut(o.Satoshis, o.LockingScript))
	}

	// A bare funding input keeps txids unique for output-only actions.
	l.seq++
	var nonce [4]byte
	binary.LittleEndian.PutUint32(nonce[:], l.seq)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&zeroHash, l.seq), nonce[:], nil))

	txHash := tx.TxHash()
	txid := txHash.String()
	for _, in := range args.Inputs {
		l.spent[in.Outpoint] = true
	}
	for i, o := range args.Outputs {
		l.outputs = append(l.outputs, ledgerOutput{
			ref:      bitcoin.OutpointFromWire(*wire.NewOutPoint(&txHash, uint32(i))),
			satoshis: o.Satoshis,
			script:   append([]byte(nil), o.LockingScript...),
			topics:   slices.Clone(args.Topics),
		})
	}
	return &CreateActionResult{TxID: txid, BridgeReference: "memory:" + txid}, nil
}

// FetchOwned lists the unspent outputs tagged with namespace, oldest first.
func (l *MemoryLedger) FetchOwned(ctx context.Context, namespace token.Namespace, identity *btcec.PublicKey) ([]token.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, token.ErrBridgeUnavailable)
	}
	if identity == nil || !identity.IsEqual(l.identity) {
		return nil, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	topic := namespace.Topic()
	var out []token.RawRecord
	for _, o := range l.outputs {
		if l.spent[o.ref] || !slices.Contains(o.topics, topic) {
			continue
		}
		out = append(out, token.RawRecord{
			Amount:        o.satoshis,
			Reference:     o.ref,
			LockingScript: append([]byte(nil), o.script...),
		})
	}
	return out, nil
}

// Inject records an externally created output, e.g. one written by another
// client or a tampered one in tests.
func (l *MemoryLedger) Inject(satoshis int64, script []byte, topics ...string) token.Outpoint {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&zeroHash, l.seq), nil, nil))
	tx.AddTxOut(wire.NewTxOut(satoshis, script))
	txHash := tx.TxHash()
	ref := bitcoin.OutpointFromWire(*wire.NewOutPoint(&txHash, 0))
	l.outputs = append(l.outputs, ledgerOutput{ref: ref, satoshis: satoshis, script: append([]byte(nil), script...), topics: topics})
	return ref
}

func (l *MemoryLedger) unspent(ref token.Outpoint) (ledgerOutput, bool) {
	if l.spent[ref] {
		return ledgerOutput{}, false
	}
	for _, o := range l.outputs {
		if o.ref == ref {
			return o, true
		}
	}
	return ledgerOutput{}, false
}

var zeroHash chainhash.Hash
