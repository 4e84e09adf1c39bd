package crypto

import "crypto/subtle"

// Wipe zeroes each buffer in place. It is best effort: copies the runtime
// made earlier are out of reach.
func Wipe(bufs ...[]byte) {
	for _, b := range bufs {
		if len(b) == 0 {
			continue
		}
		subtle.ConstantTimeCopy(1, b, make([]byte, len(b)))
	}
}
