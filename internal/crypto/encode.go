package crypto

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// B64 returns standard base64 encoding without newlines.
func B64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

// UnB64 decodes standard base64.
func UnB64(s string) ([]byte, error) { return base64.StdEncoding.DecodeString(s) }

// Fingerprint identifies key material in logs without revealing it: the
// first 10 bytes of its SHA-256, hex encoded. Empty input yields "".
func Fingerprint(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:10])
}
