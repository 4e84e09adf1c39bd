package crypto

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// SessionKeyBytes is the size of a session key.
const SessionKeyBytes = chacha20poly1305.KeySize

var (
	// ErrKeySize is returned for keys that are not SessionKeyBytes long.
	ErrKeySize = fmt.Errorf("session key must be %d bytes", SessionKeyBytes)
	// ErrCiphertext is returned when a payload is truncated, not base64, or
	// fails authentication.
	ErrCiphertext = errors.New("invalid or tampered ciphertext")
)

// NewSessionKey returns a fresh random session key.
func NewSessionKey() ([]byte, error) {
	key := make([]byte, SessionKeyBytes)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// Encrypt seals plain under key and returns base64(nonce || ciphertext).
func Encrypt(plain, key []byte) (string, error) {
	if len(key) != SessionKeyBytes {
		return "", ErrKeySize
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	return B64(aead.Seal(nonce, nonce, plain, nil)), nil
}

// Decrypt opens a payload produced by Encrypt.
func Decrypt(ciphertext string, key []byte) ([]byte, error) {
	if len(key) != SessionKeyBytes {
		return nil, ErrKeySize
	}
	raw, err := UnB64(ciphertext)
	if err != nil {
		return nil, ErrCiphertext
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrCiphertext
	}
	nonce, ct := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, ErrCiphertext
	}
	return plain, nil
}

// EncryptJSON marshals v and encrypts it under key.
func EncryptJSON(v any, key []byte) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return Encrypt(raw, key)
}

// DecryptJSON decrypts ciphertext under key and unmarshals it into out.
func DecryptJSON(ciphertext string, key []byte, out any) error {
	raw, err := Decrypt(ciphertext, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
