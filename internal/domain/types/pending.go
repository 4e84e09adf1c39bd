package types

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// AuthLinkScheme prefixes the link a signer app scans to pick up an
// authentication request.
const AuthLinkScheme = "has://auth_req/"

// AuthLink carries what a signer needs to join a pending authentication:
// the request uuid and the session key that decrypts its payload.
type AuthLink struct {
	Account Account `json:"account"`
	UUID    string  `json:"uuid"`
	Key     string  `json:"key"`
	Host    string  `json:"host,omitempty"`
}

// URI encodes the link as has://auth_req/<base64 json>.
func (l AuthLink) URI() string {
	b, _ := json.Marshal(l)
	return AuthLinkScheme + base64.StdEncoding.EncodeToString(b)
}

// Pending is emitted once when an exchange has been accepted by the relay and
// is waiting for the signer.
type Pending struct {
	Kind      Kind
	UUID      string
	ExpiresAt time.Time
	Auth      *AuthLink
}

// PendingFunc receives the pending event together with a function that
// cancels the exchange.
type PendingFunc func(ev Pending, cancel func())
