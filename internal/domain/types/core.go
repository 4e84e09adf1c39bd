package types

// Account names the user whose signer (PKSA) an exchange is addressed to.
type Account string

// String returns the string form of the account.
func (a Account) String() string { return string(a) }

// KeyType selects which of the account's keys the signer should use.
type KeyType string

const (
	KeyTypePosting KeyType = "posting"
	KeyTypeActive  KeyType = "active"
	KeyTypeMemo    KeyType = "memo"
)

// Valid reports whether k is one of the known key types.
func (k KeyType) Valid() bool {
	switch k {
	case KeyTypePosting, KeyTypeActive, KeyTypeMemo:
		return true
	}
	return false
}

// Kind is the kind of protocol exchange.
type Kind int

const (
	KindAuthenticate Kind = iota
	KindSignAndBroadcast
	KindChallengeSign
)

// String returns the label used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindAuthenticate:
		return "auth"
	case KindSignAndBroadcast:
		return "sign"
	case KindChallengeSign:
		return "challenge"
	}
	return "unknown"
}

// Commands returns the wire command names used by exchanges of kind k.
func (k Kind) Commands() CommandSet {
	switch k {
	case KindAuthenticate:
		return CommandSet{Req: CmdAuthReq, Wait: CmdAuthWait, Ack: CmdAuthAck, Nack: CmdAuthNack, Err: CmdAuthErr}
	case KindSignAndBroadcast:
		return CommandSet{Req: CmdSignReq, Wait: CmdSignWait, Ack: CmdSignAck, Nack: CmdSignNack, Err: CmdSignErr}
	case KindChallengeSign:
		return CommandSet{Req: CmdChallengeReq, Wait: CmdChallengeWait, Ack: CmdChallengeAck, Nack: CmdChallengeNack, Err: CmdChallengeErr}
	}
	return CommandSet{}
}

// KindOf maps a request command back to its exchange kind.
func KindOf(cmd Command) (Kind, bool) {
	switch cmd {
	case CmdAuthReq:
		return KindAuthenticate, true
	case CmdSignReq:
		return KindSignAndBroadcast, true
	case CmdChallengeReq:
		return KindChallengeSign, true
	}
	return 0, false
}
