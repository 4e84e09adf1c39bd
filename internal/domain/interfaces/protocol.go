package interfaces

import (
	"context"
	"time"

	domaintypes "pksalink/internal/domain/types"
)

// Connection is the view of the relay connection manager that exchanges use.
type Connection interface {
	Connect(ctx context.Context) bool
	Connected() bool
	// Epoch increments on every successful connect.
	Epoch() uint64
	Send(frame domaintypes.Frame)
	Reattach(ctx context.Context, account domaintypes.Account, uuid string, deadline time.Time) error
	RequestTimeout() time.Duration
}

// Inbox stores inbound relay messages until one exchange consumes them.
type Inbox interface {
	Push(msg domaintypes.RelayMessage) bool
	Take(kind domaintypes.Command, uuid string) (domaintypes.RelayMessage, bool)
	TakeFirst(uuid string, kinds ...domaintypes.Command) (domaintypes.RelayMessage, bool)
	TakeMatch(match func(domaintypes.RelayMessage) bool, kinds ...domaintypes.Command) (domaintypes.RelayMessage, bool)
}
