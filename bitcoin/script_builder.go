package bitcoin

import (
	"context"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"

	"todo-ledger/core/token"
	"todo-ledger/keys"
)

// ScriptBuilder builds task locking and unlocking scripts for one namespace,
// resolving the locking key from a key scope.
type ScriptBuilder struct {
	keys      keys.Provider
	namespace token.Namespace
}

// NewScriptBuilder returns a builder for namespace backed by provider.
func NewScriptBuilder(provider keys.Provider, namespace token.Namespace) (*ScriptBuilder, error) {
	if provider == nil {
		return nil, fmt.Errorf("key provider required")
	}
	if len(namespace) == 0 {
		return nil, fmt.Errorf("namespace required")
	}
	return &ScriptBuilder{keys: provider, namespace: namespace}, nil
}

// LockingScript locks an encrypted payload to the scope's signing key.
func (b *ScriptBuilder) LockingScript(ctx context.Context, payload []byte, scope token.Scope) ([]byte, error) {
	key, err := b.signingKey(ctx, scope)
	if err != nil {
		return nil, err
	}
	return BuildLockingScript(b.namespace, payload, key.PubKey())
}

// UnlockingScript produces the script redeeming the output at ref. It has no
// side effects.
func (b *ScriptBuilder) UnlockingScript(ctx context.Context, prior []byte, scope token.Scope, ref token.Outpoint, amount int64) ([]byte, error) {
	key, err := b.signingKey(ctx, scope)
	if err != nil {
		return nil, err
	}
	return BuildUnlockingScript(prior, b.namespace, key, ref, amount)
}

// Payload extracts the encrypted payload field of a record's locking script.
func (b *ScriptBuilder) Payload(script []byte) ([]byte, error) {
	fields, err := DecodeLockingScript(script, b.namespace)
	if err != nil {
		return nil, err
	}
	return fields.Payload, nil
}

func (b *ScriptBuilder) signingKey(ctx context.Context, scope token.Scope) (*btcec.PrivateKey, error) {
	key, err := b.keys.SigningKey(ctx, scope)
	if err != nil {
		if errors.Is(err, token.ErrKeyUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("resolve signing key: %v: %w", err, token.ErrKeyUnavailable)
	}
	return key, nil
}
