package store

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const envelopeVersion = 1

// ErrWrongPassphrase means the passphrase is wrong or the file was modified.
var ErrWrongPassphrase = errors.New("wrong passphrase or corrupted session file")

// kdfParams are the scrypt cost parameters recorded in every envelope.
type kdfParams struct {
	N, R, P int
}

var defaultKDF = kdfParams{N: 1 << 15, R: 8, P: 1}

// envelope is the on-disk JSON form of a sealed file.
type envelope struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Cipher []byte `json:"cipher"`
}

// seal derives a key from passphrase under a fresh salt and encrypts raw.
// The salt is bound as associated data; a fresh salt per write makes the
// zero nonce safe.
func seal(passphrase string, raw []byte, kdf kdfParams) ([]byte, error) {
	var salt [16]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, err
	}
	aead, err := envelopeAEAD(passphrase, salt[:], kdf)
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSize]byte
	return json.Marshal(envelope{
		V:      envelopeVersion,
		Salt:   salt[:],
		N:      kdf.N,
		R:      kdf.R,
		P:      kdf.P,
		Cipher: aead.Seal(nil, nonce[:], raw, salt[:]),
	})
}

// open reverses seal using the parameters recorded in the envelope.
func open(passphrase string, b []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("decode session file: %w", err)
	}
	if env.V > envelopeVersion {
		return nil, fmt.Errorf("unsupported session file version %d", env.V)
	}
	aead, err := envelopeAEAD(passphrase, env.Salt, kdfParams{N: env.N, R: env.R, P: env.P})
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSize]byte
	pt, err := aead.Open(nil, nonce[:], env.Cipher, env.Salt)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return pt, nil
}

func envelopeAEAD(passphrase string, salt []byte, kdf kdfParams) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, kdf.N, kdf.R, kdf.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	return chacha20poly1305.New(key)
}
