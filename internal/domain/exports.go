package domain

import (
	interfaces "pksalink/internal/domain/interfaces"
	types "pksalink/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Account          = types.Account
	KeyType          = types.KeyType
	Kind             = types.Kind
	Command          = types.Command
	CommandSet       = types.CommandSet
	Frame            = types.Frame
	RelayMessage     = types.RelayMessage
	AppMetadata      = types.AppMetadata
	SessionState     = types.SessionState
	AuthPayload      = types.AuthPayload
	ChallengePayload = types.ChallengePayload
	SignPayload      = types.SignPayload
	AuthAck          = types.AuthAck
	ChallengeAck     = types.ChallengeAck
	SignAck          = types.SignAck
	AuthLink         = types.AuthLink
	Pending          = types.Pending
	PendingFunc      = types.PendingFunc
	ProtocolError    = types.ProtocolError
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	Connection    = interfaces.Connection
	Inbox         = interfaces.Inbox
	SessionStore  = interfaces.SessionStore
	SignerService = interfaces.SignerService
)

const (
	KeyTypePosting = types.KeyTypePosting
	KeyTypeActive  = types.KeyTypeActive
	KeyTypeMemo    = types.KeyTypeMemo

	KindAuthenticate     = types.KindAuthenticate
	KindSignAndBroadcast = types.KindSignAndBroadcast
	KindChallengeSign    = types.KindChallengeSign

	CmdConnected     = types.CmdConnected
	CmdError         = types.CmdError
	CmdAuthReq       = types.CmdAuthReq
	CmdAuthWait      = types.CmdAuthWait
	CmdAuthAck       = types.CmdAuthAck
	CmdAuthNack      = types.CmdAuthNack
	CmdAuthErr       = types.CmdAuthErr
	CmdSignReq       = types.CmdSignReq
	CmdSignWait      = types.CmdSignWait
	CmdSignAck       = types.CmdSignAck
	CmdSignNack      = types.CmdSignNack
	CmdSignErr       = types.CmdSignErr
	CmdChallengeReq  = types.CmdChallengeReq
	CmdChallengeWait = types.CmdChallengeWait
	CmdChallengeAck  = types.CmdChallengeAck
	CmdChallengeNack = types.CmdChallengeNack
	CmdChallengeErr  = types.CmdChallengeErr
	CmdAttachReq     = types.CmdAttachReq
	CmdAttachAck     = types.CmdAttachAck
	CmdAttachNack    = types.CmdAttachNack
	CmdRegisterReq   = types.CmdRegisterReq
	CmdRegisterAck   = types.CmdRegisterAck

	AuthLinkScheme = types.AuthLinkScheme
)

// Error taxonomy shared by every exchange.
var (
	ErrConnectionUnavailable = types.ErrConnectionUnavailable
	ErrRejected              = types.ErrRejected
	ErrProtocol              = types.ErrProtocol
	ErrExpired               = types.ErrExpired
	ErrCancelled             = types.ErrCancelled
	ErrDecryptionFailed      = types.ErrDecryptionFailed
	ErrMalformed             = types.ErrMalformed
)

// Helper functions re-exported from the types subpackage.
var (
	MessageFromFrame = types.MessageFromFrame
	KindOf           = types.KindOf
	Malformed        = types.Malformed
)
