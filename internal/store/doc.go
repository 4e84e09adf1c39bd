// Package store persists authenticated sessions between runs.
//
// Sessions live in a single file under the configured home directory,
// sealed with a passphrase-derived key (scrypt + ChaCha20-Poly1305) and
// replaced atomically on every write. All methods are safe for concurrent use.
package store
