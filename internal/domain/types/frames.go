package types

// Command is the "cmd" field of a relay frame.
type Command string

const (
	CmdConnected Command = "connected"
	CmdError     Command = "error"

	CmdAuthReq  Command = "auth_req"
	CmdAuthWait Command = "auth_wait"
	CmdAuthAck  Command = "auth_ack"
	CmdAuthNack Command = "auth_nack"
	CmdAuthErr  Command = "auth_err"

	CmdSignReq  Command = "sign_req"
	CmdSignWait Command = "sign_wait"
	CmdSignAck  Command = "sign_ack"
	CmdSignNack Command = "sign_nack"
	CmdSignErr  Command = "sign_err"

	CmdChallengeReq  Command = "challenge_req"
	CmdChallengeWait Command = "challenge_wait"
	CmdChallengeAck  Command = "challenge_ack"
	CmdChallengeNack Command = "challenge_nack"
	CmdChallengeErr  Command = "challenge_err"

	CmdAttachReq  Command = "attach_req"
	CmdAttachAck  Command = "attach_ack"
	CmdAttachNack Command = "attach_nack"

	// Signer-side registration, spoken only between a PKSA and the relay.
	CmdRegisterReq Command = "register_req"
	CmdRegisterAck Command = "register_ack"
)

// CommandSet lists the commands of one exchange kind.
type CommandSet struct {
	Req  Command
	Wait Command
	Ack  Command
	Nack Command
	Err  Command
}

// Frame is one JSON object on the relay socket.
//
// Data is ciphertext under the session key on every frame except *_wait,
// where it is plaintext housekeeping. Expire is an absolute time in Unix
// milliseconds. The connected frame carries Protocol and Timeout (seconds).
type Frame struct {
	Cmd      Command   `json:"cmd"`
	UUID     string    `json:"uuid,omitempty"`
	Account  Account   `json:"account,omitempty"`
	Token    string    `json:"token,omitempty"`
	Data     string    `json:"data,omitempty"`
	Expire   int64     `json:"expire,omitempty"`
	Key      string    `json:"key,omitempty"`
	Error    string    `json:"error,omitempty"`
	Server   string    `json:"server,omitempty"`
	Protocol float64   `json:"protocol,omitempty"`
	Timeout  int       `json:"timeout,omitempty"`
	Accounts []Account `json:"accounts,omitempty"`
}
