package workflow

import (
	"context"
	"sync"

	"pksalink/internal/domain"
)

// Result is the terminal outcome of an exchange. Data holds the decrypted
// acknowledgement (domain.AuthAck, domain.SignAck or domain.ChallengeAck)
// when State is StateAcked.
type Result struct {
	State State
	UUID  string
	Data  any
	Err   error
}

// Handle is the caller's view of a running exchange.
type Handle struct {
	kind domain.Kind

	pending chan domain.Pending
	done    chan struct{}

	cancelOnce sync.Once
	cancelCh   chan struct{}

	mu     sync.Mutex
	state  State
	result Result
}

func newHandle(kind domain.Kind) *Handle {
	return &Handle{
		kind:     kind,
		pending:  make(chan domain.Pending, 1),
		done:     make(chan struct{}),
		cancelCh: make(chan struct{}),
	}
}

// Kind returns the exchange kind.
func (h *Handle) Kind() domain.Kind { return h.kind }

// Pending delivers at most one event, when the relay has accepted the request
// and the signer is being waited for. It is closed once the exchange resolves.
func (h *Handle) Pending() <-chan domain.Pending { return h.pending }

// Done is closed when the exchange reaches a terminal state.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Cancel asks the exchange to stop. It takes effect on the next tick; an
// exchange that already resolved is unaffected.
func (h *Handle) Cancel() {
	h.cancelOnce.Do(func() { close(h.cancelCh) })
}

func (h *Handle) cancelled() bool {
	select {
	case <-h.cancelCh:
		return true
	default:
		return false
	}
}

// State returns the current state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Wait blocks until the exchange resolves or ctx ends. When ctx ends first
// the returned Result carries ctx.Err() and the exchange keeps running.
func (h *Handle) Wait(ctx context.Context) Result {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.result
	case <-ctx.Done():
		return Result{State: h.State(), Err: ctx.Err()}
	}
}

func (h *Handle) setState(s State) {
	h.mu.Lock()
	h.state = s
	h.mu.Unlock()
}

func (h *Handle) emitPending(ev domain.Pending) {
	select {
	case h.pending <- ev:
	default:
	}
}

func (h *Handle) resolve(r Result) {
	h.mu.Lock()
	h.state = r.State
	h.result = r
	h.mu.Unlock()
	close(h.pending)
	close(h.done)
}
