package types

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectionUnavailable means the relay socket never reached the open state.
	ErrConnectionUnavailable = errors.New("relay connection unavailable")
	// ErrRejected means the signer answered with a nack.
	ErrRejected = errors.New("request rejected by signer")
	// ErrProtocol matches every ProtocolError.
	ErrProtocol = errors.New("relay protocol error")
	// ErrExpired means the deadline passed before a terminal frame arrived.
	ErrExpired = errors.New("request expired")
	// ErrCancelled means the caller cancelled the exchange.
	ErrCancelled = errors.New("request cancelled")
	// ErrDecryptionFailed means an ack payload could not be decrypted or parsed.
	ErrDecryptionFailed = errors.New("response decryption failed")
	// ErrMalformed means the caller passed invalid arguments.
	ErrMalformed = errors.New("malformed request")
)

// ProtocolError is an error reported by the relay or the signer.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s", ErrProtocol, e.Message)
}

// Is makes errors.Is(err, ErrProtocol) true for every ProtocolError.
func (e *ProtocolError) Is(target error) bool { return target == ErrProtocol }

// Malformed wraps ErrMalformed with a reason.
func Malformed(reason string) error {
	return fmt.Errorf("%w: %s", ErrMalformed, reason)
}
