// Package crypto exposes the minimal primitives used by pksalink.
//
// Contents
//
//   - Session keys and payload encryption (NewSessionKey, Encrypt, Decrypt,
//     EncryptJSON, DecryptJSON). Payloads are sealed with XChaCha20-Poly1305
//     under a per-session random key and travel as base64 text, so the relay
//     only ever sees ciphertext.
//   - Optional key escrow (SealKey, OpenKey): the session key sealed under a
//     scrypt-derived key from a deployment shared secret.
//   - Ed25519 key generation, signing and verification (GenerateEd25519,
//     SignEd25519, VerifyEd25519) for challenge signatures.
//   - Short fingerprints for display/logging (Fingerprint) and best-effort
//     zeroing of key material (Wipe).
//
// # Notes
//
// The payload format is nonce || ciphertext, base64 encoded. It is not
// compatible with signers that expect the legacy passphrase-derived stream
// cipher; both ends of a deployment must run this construction.
package crypto
