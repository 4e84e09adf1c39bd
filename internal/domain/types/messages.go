package types

import "time"

// RelayMessage is an inbound frame retained by the inbox until exactly one
// exchange consumes it.
type RelayMessage struct {
	Kind      Command
	UUID      string
	Account   Account
	Data      string
	Key       string
	Error     string
	ExpiresAt time.Time
}

// MessageFromFrame converts a frame into a RelayMessage. Frames without an
// expire field live for ttl from now.
func MessageFromFrame(f Frame, now time.Time, ttl time.Duration) RelayMessage {
	expiresAt := now.Add(ttl)
	if f.Expire > 0 {
		expiresAt = time.UnixMilli(f.Expire)
	}
	return RelayMessage{
		Kind:      f.Cmd,
		UUID:      f.UUID,
		Account:   f.Account,
		Data:      f.Data,
		Key:       f.Key,
		Error:     f.Error,
		ExpiresAt: expiresAt,
	}
}

// Expired reports whether the message deadline has passed at now.
func (m RelayMessage) Expired(now time.Time) bool {
	return !m.ExpiresAt.After(now)
}
