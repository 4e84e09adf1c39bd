package interfaces

import domaintypes "pksalink/internal/domain/types"

// SessionStore persists authenticated sessions between runs.
type SessionStore interface {
	SaveSession(passphrase string, state domaintypes.SessionState) error
	LoadSession(passphrase string, account domaintypes.Account) (domaintypes.SessionState, bool, error)
	DeleteSession(passphrase string, account domaintypes.Account) error
}
