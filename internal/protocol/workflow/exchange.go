package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"pksalink/internal/crypto"
	"pksalink/internal/domain"
	"pksalink/internal/session"
)

// exchange is one in-flight request. Its fields are only touched under
// tickMu, by the exchange's own goroutine.
type exchange struct {
	e      *Engine
	kind   domain.Kind
	cmds   domain.CommandSet
	sess   *session.Session
	key    []byte
	frame  domain.Frame
	accept func(x *exchange, data string) (any, error)
	handle *Handle

	// challenged is set on logins that carry a challenge.
	challenged bool

	tickMu      sync.Mutex
	state       State
	uuid        string
	epoch       uint64
	holdsGate   bool
	sentAt      time.Time
	submittedAt time.Time
	expiresAt   time.Time
}

func (x *exchange) run(ctx context.Context) {
	ctx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		select {
		case <-x.handle.cancelCh:
			stop()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(x.e.poll)
	defer ticker.Stop()
	for !x.tick(ctx) {
		select {
		case <-ticker.C:
		case <-ctx.Done():
		}
	}
}

// tick advances the exchange by at most one transition and reports whether
// it has resolved.
func (x *exchange) tick(ctx context.Context) bool {
	x.tickMu.Lock()
	defer x.tickMu.Unlock()

	if x.state.Terminal() {
		return true
	}
	if x.handle.cancelled() || ctx.Err() != nil {
		x.finish(StateCancelled, nil, domain.ErrCancelled)
		return true
	}
	// Expiry wins over anything the inbox holds.
	if !x.e.now().Before(x.expiresAt) {
		x.finish(StateExpired, nil, domain.ErrExpired)
		return true
	}

	if x.state == StateInit {
		x.submit(ctx)
		return x.state.Terminal()
	}
	if !x.ensureAttached(ctx) {
		return x.state.Terminal()
	}
	switch x.state {
	case StateAwaitingWait:
		x.pollWait()
	case StateAwaitingOutcome:
		x.pollOutcome()
	}
	return x.state.Terminal()
}

func (x *exchange) submit(ctx context.Context) {
	if !x.e.acquireGate() {
		return
	}
	x.holdsGate = true

	conn := x.e.conn
	if !conn.Connect(ctx) {
		x.releaseGate()
		if ctx.Err() != nil {
			return
		}
		x.finish(StateErrored, nil, fmt.Errorf("send %s: %w", x.cmds.Req, domain.ErrConnectionUnavailable))
		return
	}
	x.epoch = conn.Epoch()
	x.expiresAt = x.submittedAt.Add(conn.RequestTimeout())

	x.sentAt = x.e.now()
	conn.Send(x.frame)
	x.transition(StateAwaitingWait)
	x.logger().WithField("key", crypto.Fingerprint(x.key)).Debug("Request sent")
}

// ensureAttached reconnects after the socket dropped or was replaced since
// the last tick and reattaches a request the relay already assigned a uuid.
// It returns false when this tick should not look at the inbox.
func (x *exchange) ensureAttached(ctx context.Context) bool {
	conn := x.e.conn
	if conn.Connected() && conn.Epoch() == x.epoch {
		return true
	}
	if !conn.Connect(ctx) {
		x.logger().Debug("Relay unavailable, waiting")
		return false
	}
	epoch := conn.Epoch()
	if x.uuid == "" {
		// Nothing to reattach. A wait frame sent before the drop may still be
		// in the inbox; otherwise the deadline ends the exchange.
		x.epoch = epoch
		return true
	}

	err := conn.Reattach(ctx, x.sess.Account, x.uuid, x.expiresAt)
	switch {
	case err == nil:
		reattachesTotal.WithLabelValues("ok").Inc()
		x.epoch = epoch
		return true
	case ctx.Err() != nil:
		return false
	case errors.Is(err, domain.ErrExpired) && !x.e.now().Before(x.expiresAt):
		reattachesTotal.WithLabelValues("expired").Inc()
		x.finish(StateExpired, nil, domain.ErrExpired)
	default:
		reattachesTotal.WithLabelValues("failed").Inc()
		x.finish(StateErrored, nil, &domain.ProtocolError{Message: "reattach failed: " + err.Error()})
	}
	return false
}

// pollWait looks for the wait frame of the request. While the exchange holds
// the send gate it also accepts frames that name no account; once the wait
// window has passed it gives the gate up and only accepts frames the relay
// tagged with its account.
func (x *exchange) pollWait() {
	if x.holdsGate && !x.e.now().Before(x.sentAt.Add(x.e.window)) {
		x.releaseGate()
		x.logger().Warn("No wait frame within the wait window, releasing send gate")
	}

	in := x.e.inbox
	if msg, ok := in.TakeMatch(x.addressedToUs, x.cmds.Wait); ok {
		x.onWait(msg)
		return
	}
	unaddressed := func(m domain.RelayMessage) bool { return m.UUID == "" && x.addressedToUs(m) }
	if msg, ok := in.TakeMatch(unaddressed, x.cmds.Err, domain.CmdError); ok {
		x.finish(StateErrored, nil, x.protocolError(msg))
	}
}

func (x *exchange) addressedToUs(m domain.RelayMessage) bool {
	if m.Account == "" {
		return x.holdsGate
	}
	return m.Account == x.sess.Account
}

func (x *exchange) onWait(msg domain.RelayMessage) {
	if msg.UUID == "" {
		x.finish(StateErrored, nil, &domain.ProtocolError{Message: string(msg.Kind) + " without uuid"})
		return
	}
	x.uuid = msg.UUID
	if !msg.ExpiresAt.IsZero() {
		x.expiresAt = msg.ExpiresAt
	}
	x.releaseGate()
	if !x.transition(StateAwaitingOutcome) {
		return
	}

	ev := domain.Pending{Kind: x.kind, UUID: x.uuid, ExpiresAt: x.expiresAt}
	if x.kind == domain.KindAuthenticate {
		ev.Auth = &domain.AuthLink{
			Account: x.sess.Account,
			UUID:    x.uuid,
			Key:     crypto.B64(x.key),
			Host:    x.e.host,
		}
	}
	x.handle.emitPending(ev)
	x.logger().WithField("expires", x.expiresAt).Info("Waiting for signer")
}

func (x *exchange) pollOutcome() {
	msg, ok := x.e.inbox.TakeFirst(x.uuid, x.cmds.Ack, x.cmds.Nack, x.cmds.Err, domain.CmdError)
	if !ok {
		return
	}
	switch msg.Kind {
	case x.cmds.Ack:
		data, err := x.accept(x, msg.Data)
		if err != nil {
			x.finish(StateErrored, nil, fmt.Errorf("%w: %v", domain.ErrDecryptionFailed, err))
			return
		}
		x.finish(StateAcked, data, nil)
	case x.cmds.Nack:
		if x.kind == domain.KindAuthenticate {
			// The signer proves the nack is genuine by encrypting the uuid.
			if got, ok := x.decryptText(msg.Data); !ok || got != x.uuid {
				x.logger().Warn("Ignoring auth_nack that does not carry the request uuid")
				return
			}
		}
		x.finish(StateNacked, nil, domain.ErrRejected)
	default:
		x.finish(StateErrored, nil, x.protocolError(msg))
	}
}

func (x *exchange) protocolError(msg domain.RelayMessage) error {
	text := msg.Error
	if plain, ok := x.decryptText(msg.Data); ok && plain != "" {
		text = plain
	}
	if text == "" {
		text = "unspecified " + string(msg.Kind)
	}
	return &domain.ProtocolError{Message: text}
}

// decryptText opens data under the exchange key. The plaintext is either a
// JSON string or raw text.
func (x *exchange) decryptText(data string) (string, bool) {
	if data == "" || len(x.key) == 0 {
		return "", false
	}
	plain, err := crypto.Decrypt(data, x.key)
	if err != nil {
		return "", false
	}
	var s string
	if json.Unmarshal(plain, &s) == nil {
		return s, true
	}
	return string(plain), true
}

func (x *exchange) transition(next State) bool {
	if !canTransition(x.state, next) {
		x.logger().WithField("next", next).Warn("Ignoring invalid state transition")
		return false
	}
	x.state = next
	x.handle.setState(next)
	return true
}

func (x *exchange) finish(s State, data any, err error) {
	if !x.transition(s) {
		return
	}
	x.releaseGate()
	x.sess.Release()
	crypto.Wipe(x.key)

	exchangeOutcomes.WithLabelValues(x.kind.String(), s.String()).Inc()
	entry := x.logger().WithField("state", s)
	if err != nil {
		entry.WithError(err).Info("Exchange failed")
	} else {
		entry.Info("Exchange completed")
	}
	x.handle.resolve(Result{State: s, UUID: x.uuid, Data: data, Err: err})
}

func (x *exchange) releaseGate() {
	if x.holdsGate {
		x.holdsGate = false
		x.e.releaseGate()
	}
}

func (x *exchange) logger() *logrus.Entry {
	return log.WithFields(logrus.Fields{
		"kind":    x.kind.String(),
		"account": x.sess.Account,
		"uuid":    x.uuid,
	})
}

func acceptAuth(x *exchange, data string) (any, error) {
	var ack domain.AuthAck
	if err := crypto.DecryptJSON(data, x.key, &ack); err != nil {
		return nil, err
	}
	if ack.Token == "" {
		return nil, errors.New("auth ack carries no token")
	}
	if ack.Expire <= 0 {
		return nil, errors.New("auth ack carries no expiry")
	}
	if x.challenged && (ack.Challenge == nil || ack.Challenge.Challenge == "") {
		return nil, errors.New("auth ack carries no challenge signature")
	}
	x.sess.Populate(x.key, ack.Token, time.UnixMilli(ack.Expire))
	return ack, nil
}

func acceptSign(x *exchange, data string) (any, error) {
	var ack domain.SignAck
	if err := crypto.DecryptJSON(data, x.key, &ack); err != nil {
		return nil, err
	}
	if len(ack.Result) == 0 {
		return nil, errors.New("sign ack carries no result")
	}
	return ack, nil
}

func acceptChallenge(x *exchange, data string) (any, error) {
	var ack domain.ChallengeAck
	if err := crypto.DecryptJSON(data, x.key, &ack); err != nil {
		return nil, err
	}
	if ack.Challenge == "" || ack.PubKey == "" {
		return nil, errors.New("challenge ack is incomplete")
	}
	return ack, nil
}
