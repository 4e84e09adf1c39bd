package crypto

import (
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const escrowSaltBytes = 16

// Tunables for the escrow key derivation.
const (
	escrowScryptN = 1 << 15
	escrowScryptR = 8
	escrowScryptP = 1
)

// ErrNoSharedSecret is returned when escrow is requested without a secret.
var ErrNoSharedSecret = errors.New("key escrow requires a shared secret")

// SealKey encrypts sessionKey under a key derived from sharedSecret and
// returns base64(salt || nonce || ciphertext).
func SealKey(sessionKey []byte, sharedSecret string) (string, error) {
	if sharedSecret == "" {
		return "", ErrNoSharedSecret
	}
	salt := make([]byte, escrowSaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	kek, err := deriveEscrowKey(sharedSecret, salt)
	if err != nil {
		return "", err
	}
	defer Wipe(kek)

	aead, err := chacha20poly1305.New(kek)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	out := append(append([]byte{}, salt...), nonce...)
	out = aead.Seal(out, nonce, sessionKey, salt)
	return B64(out), nil
}

// OpenKey reverses SealKey.
func OpenKey(sealed, sharedSecret string) ([]byte, error) {
	if sharedSecret == "" {
		return nil, ErrNoSharedSecret
	}
	raw, err := UnB64(sealed)
	if err != nil {
		return nil, ErrCiphertext
	}
	if len(raw) < escrowSaltBytes+chacha20poly1305.NonceSize+chacha20poly1305.Overhead {
		return nil, ErrCiphertext
	}
	salt := raw[:escrowSaltBytes]
	nonce := raw[escrowSaltBytes : escrowSaltBytes+chacha20poly1305.NonceSize]
	ct := raw[escrowSaltBytes+chacha20poly1305.NonceSize:]

	kek, err := deriveEscrowKey(sharedSecret, salt)
	if err != nil {
		return nil, err
	}
	defer Wipe(kek)

	aead, err := chacha20poly1305.New(kek)
	if err != nil {
		return nil, err
	}
	key, err := aead.Open(nil, nonce, ct, salt)
	if err != nil {
		return nil, ErrCiphertext
	}
	return key, nil
}

func deriveEscrowKey(secret string, salt []byte) ([]byte, error) {
	return scrypt.Key([]byte(secret), salt, escrowScryptN, escrowScryptR, escrowScryptP, chacha20poly1305.KeySize)
}
