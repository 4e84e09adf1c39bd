package interfaces

import (
	"context"
	"encoding/json"

	domaintypes "pksalink/internal/domain/types"
)

// SignerService authenticates accounts and requests signatures from their
// signers through the relay.
type SignerService interface {
	Login(
		ctx context.Context,
		passphrase string,
		account domaintypes.Account,
		challenge *domaintypes.ChallengePayload,
		onPending domaintypes.PendingFunc,
	) (domaintypes.AuthAck, error)
	Sign(
		ctx context.Context,
		passphrase string,
		account domaintypes.Account,
		keyType domaintypes.KeyType,
		ops []json.RawMessage,
		broadcast bool,
		onPending domaintypes.PendingFunc,
	) (domaintypes.SignAck, error)
	Challenge(
		ctx context.Context,
		passphrase string,
		account domaintypes.Account,
		keyType domaintypes.KeyType,
		challenge string,
		onPending domaintypes.PendingFunc,
	) (domaintypes.ChallengeAck, error)
	Logout(passphrase string, account domaintypes.Account) error
	Forget(passphrase string, account domaintypes.Account) error
	Status(passphrase string, account domaintypes.Account) (domaintypes.SessionState, bool, error)
}
