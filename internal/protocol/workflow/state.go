package workflow

// State is the position of an exchange in its lifecycle.
type State int

const (
	StateInit State = iota
	StateAwaitingWait
	StateAwaitingOutcome
	StateAcked
	StateNacked
	StateErrored
	StateExpired
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateAwaitingWait:
		return "awaiting_wait"
	case StateAwaitingOutcome:
		return "awaiting_outcome"
	case StateAcked:
		return "acked"
	case StateNacked:
		return "nacked"
	case StateErrored:
		return "errored"
	case StateExpired:
		return "expired"
	case StateCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Terminal reports whether no further transition can leave s.
func (s State) Terminal() bool {
	return s >= StateAcked
}

func canTransition(current, next State) bool {
	switch current {
	case StateInit:
		return next == StateAwaitingWait || next == StateErrored || next == StateExpired || next == StateCancelled
	case StateAwaitingWait:
		return next == StateAwaitingOutcome || next == StateErrored || next == StateExpired || next == StateCancelled
	case StateAwaitingOutcome:
		return next.Terminal()
	default:
		return false
	}
}
