package types

import "time"

// AppMetadata describes the requesting application to the user's signer.
type AppMetadata struct {
	Name        string `json:"name" toml:"Name"`
	Description string `json:"description,omitempty" toml:"Description"`
	Icon        string `json:"icon,omitempty" toml:"Icon"`
}

// SessionState is the persisted form of an authenticated session. It is
// opaque to the protocol; stores only save and restore it.
type SessionState struct {
	Account    Account     `json:"account"`
	App        AppMetadata `json:"app"`
	SessionKey []byte      `json:"session_key,omitempty"`
	Token      string      `json:"token,omitempty"`
	ExpiresAt  time.Time   `json:"expires_at,omitempty"`
}
