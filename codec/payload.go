// Package codec encrypts and decrypts task payloads under a key scope.
package codec

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"todo-ledger/core/token"
	"todo-ledger/keys"
)

// Overhead is the number of bytes a sealed payload adds to its plaintext.
const Overhead = chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead

// Codec seals task text with XChaCha20-Poly1305 using the scope's symmetric
// key. Ciphertext layout is nonce || sealed box.
type Codec struct {
	keys keys.Provider
}

// New returns a codec resolving keys through provider.
func New(provider keys.Provider) (*Codec, error) {
	if provider == nil {
		return nil, fmt.Errorf("key provider required")
	}
	return &Codec{keys: provider}, nil
}

// Encrypt seals plaintext under scope.
func (c *Codec) Encrypt(ctx context.Context, plaintext string, scope token.Scope) ([]byte, error) {
	aead, err := c.aead(ctx, scope)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, []byte(plaintext), additionalData(scope)), nil
}

// Decrypt opens a ciphertext produced by Encrypt under the same scope.
// Malformed or foreign ciphertexts fail with token.ErrDecryption.
func (c *Codec) Decrypt(ctx context.Context, ciphertext []byte, scope token.Scope) (string, error) {
	aead, err := c.aead(ctx, scope)
	if err != nil {
		return "", err
	}
	if len(ciphertext) < aead.NonceSize()+aead.Overhead() {
		return "", fmt.Errorf("ciphertext too short (%d bytes): %w", len(ciphertext), token.ErrDecryption)
	}
	nonce, sealed := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, additionalData(scope))
	if err != nil {
		return "", fmt.Errorf("open payload: %v: %w", err, token.ErrDecryption)
	}
	return string(plain), nil
}

func (c *Codec) aead(ctx context.Context, scope token.Scope) (cipher.AEAD, error) {
	key, err := c.keys.SymmetricKey(ctx, scope)
	if err != nil {
		if errors.Is(err, token.ErrKeyUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("resolve symmetric key: %v: %w", err, token.ErrKeyUnavailable)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %v: %w", err, token.ErrKeyUnavailable)
	}
	return aead, nil
}

func additionalData(scope token.Scope) []byte {
	ad := make([]byte, 0, len(scope.ProtocolID)+1+len(scope.KeyID))
	ad = append(ad, scope.ProtocolID...)
	ad = append(ad, 0)
	ad = append(ad, scope.KeyID...)
	return ad
}
