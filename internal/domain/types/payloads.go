package types

import "encoding/json"

// AuthPayload is the data of an auth_req, encrypted under the new session key.
type AuthPayload struct {
	App       AppMetadata       `json:"app"`
	Token     string            `json:"token,omitempty"`
	Challenge *ChallengePayload `json:"challenge,omitempty"`
}

// ChallengePayload is the data of a challenge_req and the optional challenge
// embedded in an auth_req.
type ChallengePayload struct {
	KeyType   KeyType `json:"key_type"`
	Challenge string  `json:"challenge"`
	Nonce     int64   `json:"nonce,omitempty"`
}

// SignPayload is the data of a sign_req.
type SignPayload struct {
	KeyType   KeyType           `json:"key_type"`
	Ops       []json.RawMessage `json:"ops"`
	Broadcast bool              `json:"broadcast"`
	Nonce     int64             `json:"nonce"`
}

// AuthAck is the decrypted data of an auth_ack.
type AuthAck struct {
	Token     string        `json:"token"`
	Expire    int64         `json:"expire"`
	Challenge *ChallengeAck `json:"challenge,omitempty"`
}

// ChallengeAck carries a challenge signature and the key that produced it.
type ChallengeAck struct {
	Challenge string `json:"challenge"`
	PubKey    string `json:"pubkey"`
}

// SignAck is the decrypted data of a sign_ack. Result is whatever the signer
// returned: a broadcast transaction id or the signed transaction.
type SignAck struct {
	Broadcast bool            `json:"broadcast"`
	Result    json.RawMessage `json:"result"`
}
