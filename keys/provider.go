// Package keys resolves per-scope signing and encryption material for an
// identity. Derivation is deterministic: the same root key and scope always
// yield the same keys.
package keys

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"golang.org/x/crypto/hkdf"

	"todo-ledger/core/token"
)

// Provider yields key material for a (protocolID, keyID) scope.
type Provider interface {
	// IdentityKey is the public key the bridge indexes records under.
	IdentityKey(ctx context.Context) (*btcec.PublicKey, error)
	// SigningKey is the key that locks and unlocks records in a scope.
	SigningKey(ctx context.Context, scope token.Scope) (*btcec.PrivateKey, error)
	// SymmetricKey is the 32 byte payload encryption key for a scope.
	SymmetricKey(ctx context.Context, scope token.Scope) ([]byte, error)
}

const (
	purposeSigning    = "signing"
	purposeEncryption = "encryption"
)

// RootKeyProvider derives scoped keys from a single secp256k1 root key.
type RootKeyProvider struct {
	root *btcec.PrivateKey
}

// NewRootKeyProvider returns a provider deriving every scope from root.
func NewRootKeyProvider(root *btcec.PrivateKey) (*RootKeyProvider, error) {
	if root == nil {
		return nil, fmt.Errorf("root key required")
	}
	return &RootKeyProvider{root: root}, nil
}

// GenerateRootKeyProvider creates a provider with a fresh random root key.
func GenerateRootKeyProvider() (*RootKeyProvider, error) {
	root, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate root key: %w", err)
	}
	return NewRootKeyProvider(root)
}

// ParseRootKey accepts a 32 byte hex private key or a WIF string.
func ParseRootKey(s string) (*btcec.PrivateKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty root key")
	}
	if raw, err := hex.DecodeString(s); err == nil {
		if len(raw) != btcec.PrivKeyBytesLen {
			return nil, fmt.Errorf("hex root key must be %d bytes, got %d", btcec.PrivKeyBytesLen, len(raw))
		}
		priv, _ := btcec.PrivKeyFromBytes(raw)
		return priv, nil
	}
	wif, err := btcutil.DecodeWIF(s)
	if err != nil {
		return nil, fmt.Errorf("decode wif root key: %w", err)
	}
	return wif.PrivKey, nil
}

func (p *RootKeyProvider) IdentityKey(ctx context.Context) (*btcec.PublicKey, error) {
	return p.root.PubKey(), nil
}

func (p *RootKeyProvider) SigningKey(ctx context.Context, scope token.Scope) (*btcec.PrivateKey, error) {
	b, err := p.derive(scope, purposeSigning)
	if err != nil {
		return nil, err
	}
	priv, _ := btcec.PrivKeyFromBytes(b)
	return priv, nil
}

func (p *RootKeyProvider) SymmetricKey(ctx context.Context, scope token.Scope) ([]byte, error) {
	return p.derive(scope, purposeEncryption)
}

func (p *RootKeyProvider) derive(scope token.Scope, purpose string) ([]byte, error) {
	protocolID := strings.TrimSpace(scope.ProtocolID)
	if protocolID == "" || scope.KeyID == "" {
		return nil, fmt.Errorf("scope %q/%q: %w", scope.ProtocolID, scope.KeyID, token.ErrKeyUnavailable)
	}
	r := hkdf.New(sha256.New, p.root.Serialize(), []byte(protocolID), []byte(purpose+":"+scope.KeyID))
	out := make([]byte, 32)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("derive %s key: %v: %w", purpose, err, token.ErrKeyUnavailable)
	}
	return out, nil
}
