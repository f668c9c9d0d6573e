package bitcoin

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"todo-ledger/core/token"
)

// UnlockSigHashType commits the unlocking signature to its own input only
// (outpoint, prior script, amount) so the submission facility is free to add
// the funding inputs and outputs of the spend.
const UnlockSigHashType = txscript.SigHashNone | txscript.SigHashAnyOneCanPay

// MaxPayloadSize is the largest payload a single script push can carry.
const MaxPayloadSize = txscript.MaxScriptElementSize

// LockedFields is the decoded content of a task locking script.
type LockedFields struct {
	Namespace []byte
	Payload   []byte
	PubKey    *btcec.PublicKey
}

// BuildLockingScript encodes the field list [namespace, payload] followed by
// a check against pubKey:
//
//	<namespace> <payload> OP_2DROP <pubkey> OP_CHECKSIG
//
// Fields use standard push-data framing, which the bridge parses.
func BuildLockingScript(namespace token.Namespace, payload []byte, pubKey *btcec.PublicKey) ([]byte, error) {
	if len(namespace) == 0 {
		return nil, fmt.Errorf("namespace required")
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("payload required")
	}
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("payload of %d bytes exceeds max script element size %d", len(payload), MaxPayloadSize)
	}
	if pubKey == nil {
		return nil, fmt.Errorf("locking public key required")
	}
	builder := txscript.NewScriptBuilder()
	builder.AddData(namespace)
	builder.AddData(payload)
	builder.AddOp(txscript.OP_2DROP)
	builder.AddData(pubKey.SerializeCompressed())
	builder.AddOp(txscript.OP_CHECKSIG)
	script, err := builder.Script()
	if err != nil {
		return nil, fmt.Errorf("build locking script: %w", err)
	}
	return script, nil
}

// DecodeLockingScript parses a locking script built by BuildLockingScript.
// When namespace is non-empty the script's marker must match it. Anything
// else fails with token.ErrForeignScript.
func DecodeLockingScript(script []byte, namespace token.Namespace) (*LockedFields, error) {
	type op struct {
		code byte
		data []byte
		push bool
	}
	var ops []op
	tokenizer := txscript.MakeScriptTokenizer(0, script)
	for tokenizer.Next() {
		data, push := pushedData(tokenizer.Opcode(), tokenizer.Data())
		ops = append(ops, op{code: tokenizer.Opcode(), data: data, push: push})
	}
	if err := tokenizer.Err(); err != nil {
		return nil, fmt.Errorf("parse script: %v: %w", err, token.ErrForeignScript)
	}
	if len(ops) != 5 ||
		!ops[0].push || !ops[1].push ||
		ops[2].code != txscript.OP_2DROP ||
		!ops[3].push ||
		ops[4].code != txscript.OP_CHECKSIG {
		return nil, fmt.Errorf("unexpected script template: %w", token.ErrForeignScript)
	}
	if len(namespace) > 0 && !bytes.Equal(ops[0].data, namespace) {
		return nil, fmt.Errorf("namespace %q: %w", ops[0].data, token.ErrForeignScript)
	}
	pubKey, err := btcec.ParsePubKey(ops[3].data)
	if err != nil {
		return nil, fmt.Errorf("locking key: %v: %w", err, token.ErrForeignScript)
	}
	return &LockedFields{
		Namespace: ops[0].data,
		Payload:   ops[1].data,
		PubKey:    pubKey,
	}, nil
}

// pushedData returns the bytes an opcode places on the stack. Small pushes
// may have been minimally encoded as OP_0, OP_1NEGATE or OP_1..OP_16.
func pushedData(opcode byte, data []byte) ([]byte, bool) {
	switch {
	case opcode == txscript.OP_0:
		return []byte{}, true
	case opcode == txscript.OP_1NEGATE:
		return []byte{0x81}, true
	case opcode >= txscript.OP_1 && opcode <= txscript.OP_16:
		return []byte{opcode - (txscript.OP_1 - 1)}, true
	case opcode <= txscript.OP_PUSHDATA4:
		return data, true
	default:
		return nil, false
	}
}

// BuildUnlockingScript signs the spend of the output at ref holding amount
// and locked by prior. It fails with token.ErrUnlockFailure when prior is
// not a record of this protocol or key is not the key that locked it.
func BuildUnlockingScript(prior []byte, namespace token.Namespace, key *btcec.PrivateKey, ref token.Outpoint, amount int64) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("signing key required: %w", token.ErrUnlockFailure)
	}
	fields, err := DecodeLockingScript(prior, namespace)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, token.ErrUnlockFailure)
	}
	if !fields.PubKey.IsEqual(key.PubKey()) {
		return nil, fmt.Errorf("signing key does not match locking key: %w", token.ErrUnlockFailure)
	}
	tx, sigHashes, err := spendTemplate(prior, ref, amount)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, token.ErrUnlockFailure)
	}
	sig, err := txscript.RawTxInWitnessSignature(tx, sigHashes, 0, amount, prior, UnlockSigHashType, key)
	if err != nil {
		return nil, fmt.Errorf("sign spend: %v: %w", err, token.ErrUnlockFailure)
	}
	script, err := txscript.NewScriptBuilder().AddData(sig).Script()
	if err != nil {
		return nil, fmt.Errorf("build unlocking script: %v: %w", err, token.ErrUnlockFailure)
	}
	return script, nil
}

// VerifyUnlockingScript checks that unlocking satisfies prior for the output
// at ref holding amount.
func VerifyUnlockingScript(prior, unlocking []byte, ref token.Outpoint, amount int64) error {
	fields, err := DecodeLockingScript(prior, nil)
	if err != nil {
		return err
	}
	tokenizer := txscript.MakeScriptTokenizer(0, unlocking)
	if !tokenizer.Next() || tokenizer.Opcode() > txscript.OP_PUSHDATA4 || len(tokenizer.Data()) < 2 {
		return fmt.Errorf("unlocking script must push one signature")
	}
	sigWithType := tokenizer.Data()
	if tokenizer.Next() || tokenizer.Err() != nil {
		return fmt.Errorf("unlocking script must push one signature")
	}
	if txscript.SigHashType(sigWithType[len(sigWithType)-1]) != UnlockSigHashType {
		return fmt.Errorf("unexpected sighash type 0x%x", sigWithType[len(sigWithType)-1])
	}
	sig, err := ecdsa.ParseDERSignature(sigWithType[:len(sigWithType)-1])
	if err != nil {
		return fmt.Errorf("parse signature: %w", err)
	}
	tx, sigHashes, err := spendTemplate(prior, ref, amount)
	if err != nil {
		return err
	}
	hash, err := txscript.CalcWitnessSigHash(prior, sigHashes, UnlockSigHashType, tx, 0, amount)
	if err != nil {
		return fmt.Errorf("sighash: %w", err)
	}
	if !sig.Verify(hash, fields.PubKey) {
		return fmt.Errorf("signature does not satisfy locking key")
	}
	return nil
}

// spendTemplate is the one-input, version 2, locktime 0 spend the unlocking
// signature commits to.
func spendTemplate(prior []byte, ref token.Outpoint, amount int64) (*wire.MsgTx, *txscript.TxSigHashes, error) {
	if amount <= 0 {
		return nil, nil, fmt.Errorf("amount must be positive")
	}
	outpoint, err := WireOutPoint(ref)
	if err != nil {
		return nil, nil, err
	}
	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(outpoint, nil, nil))
	fetcher := txscript.NewCannedPrevOutputFetcher(prior, amount)
	return tx, txscript.NewTxSigHashes(tx, fetcher), nil
}
