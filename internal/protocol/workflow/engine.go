package workflow

import (
	"context"
	"encoding/json"
	"time"

	"pksalink/internal/crypto"
	"pksalink/internal/domain"
	"pksalink/internal/session"
)

const (
	// DefaultPollInterval is how often an exchange looks at the inbox.
	DefaultPollInterval = 250 * time.Millisecond
	// DefaultWaitWindow bounds how long one request may hold the send gate
	// while its wait frame is outstanding.
	DefaultWaitWindow = 10 * time.Second
)

// AuthRequest asks the signer to authenticate the session's account. A
// non-nil Challenge is signed by the signer as part of the login.
type AuthRequest struct {
	Challenge *domain.ChallengePayload
}

// SignRequest asks the signer to sign, and optionally broadcast, operations.
type SignRequest struct {
	KeyType   domain.KeyType
	Ops       []json.RawMessage
	Broadcast bool
}

// ChallengeRequest asks the signer to sign an arbitrary challenge string.
type ChallengeRequest struct {
	KeyType   domain.KeyType
	Challenge string
}

// Option configures an Engine.
type Option func(*Engine)

// WithPollInterval sets the tick interval of every exchange.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.poll = d
		}
	}
}

// WithWaitWindow sets how long a sent request keeps the send gate before
// other exchanges may send.
func WithWaitWindow(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.window = d
		}
	}
}

// WithClock overrides the time source used for deadlines.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithSharedSecret enables key escrow: the authentication session key is
// sealed under secret and sent along with auth_req.
func WithSharedSecret(secret string) Option {
	return func(e *Engine) { e.secret = secret }
}

// WithRelayHost sets the host advertised to the signer in auth links.
func WithRelayHost(host string) Option {
	return func(e *Engine) { e.host = host }
}

// Engine starts exchanges over one relay connection and inbox.
type Engine struct {
	conn   domain.Connection
	inbox  domain.Inbox
	poll   time.Duration
	window time.Duration
	now    func() time.Time
	secret string
	host   string

	// gate is held from sending a request until its wait frame is taken or
	// the wait window passes, so an untagged wait frame on the shared socket
	// is only ever paired with the newest request.
	gate chan struct{}
}

// NewEngine returns an engine that sends through conn and reads from in.
func NewEngine(conn domain.Connection, in domain.Inbox, opts ...Option) *Engine {
	e := &Engine{
		conn:   conn,
		inbox:  in,
		poll:   DefaultPollInterval,
		window: DefaultWaitWindow,
		now:    time.Now,
		gate:   make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Authenticate starts a login for sess.Account. A fresh session key is
// generated for the exchange and handed to sess only once the signer acks.
func (e *Engine) Authenticate(ctx context.Context, sess *session.Session, req AuthRequest) *Handle {
	x, err := e.authExchange(sess, req)
	return e.launch(ctx, domain.KindAuthenticate, x, err)
}

// SignAndBroadcast asks the signer to sign req.Ops under the session.
func (e *Engine) SignAndBroadcast(ctx context.Context, sess *session.Session, req SignRequest) *Handle {
	x, err := e.signExchange(sess, req)
	return e.launch(ctx, domain.KindSignAndBroadcast, x, err)
}

// ChallengeSign asks the signer to sign req.Challenge under the session.
func (e *Engine) ChallengeSign(ctx context.Context, sess *session.Session, req ChallengeRequest) *Handle {
	x, err := e.challengeExchange(sess, req)
	return e.launch(ctx, domain.KindChallengeSign, x, err)
}

func (e *Engine) authExchange(sess *session.Session, req AuthRequest) (*exchange, error) {
	if sess == nil || sess.Account == "" {
		return nil, domain.Malformed("empty account")
	}
	var challenge *domain.ChallengePayload
	if req.Challenge != nil {
		c := *req.Challenge
		if c.Challenge == "" {
			return nil, domain.Malformed("empty challenge")
		}
		if c.KeyType == "" {
			c.KeyType = domain.KeyTypePosting
		}
		if !c.KeyType.Valid() {
			return nil, domain.Malformed("unknown key type " + string(c.KeyType))
		}
		if c.Nonce == 0 {
			c.Nonce = e.now().UnixMilli()
		}
		challenge = &c
	}

	key, err := crypto.NewSessionKey()
	if err != nil {
		return nil, err
	}
	payload := domain.AuthPayload{App: sess.App, Challenge: challenge}
	if sess.Authenticated(e.now()) {
		payload.Token = sess.Token()
	}
	data, err := crypto.EncryptJSON(payload, key)
	if err != nil {
		return nil, err
	}
	frame := domain.Frame{Cmd: domain.CmdAuthReq, Account: sess.Account, Data: data}
	if e.secret != "" {
		if frame.Key, err = crypto.SealKey(key, e.secret); err != nil {
			return nil, err
		}
	}
	return &exchange{
		e:          e,
		kind:       domain.KindAuthenticate,
		sess:       sess,
		key:        key,
		frame:      frame,
		challenged: challenge != nil,
		accept:     acceptAuth,
	}, nil
}

func (e *Engine) signExchange(sess *session.Session, req SignRequest) (*exchange, error) {
	if sess == nil || sess.Account == "" {
		return nil, domain.Malformed("empty account")
	}
	if len(req.Ops) == 0 {
		return nil, domain.Malformed("empty operation list")
	}
	if req.KeyType == "" {
		req.KeyType = domain.KeyTypeActive
	}
	if !req.KeyType.Valid() {
		return nil, domain.Malformed("unknown key type " + string(req.KeyType))
	}
	key, token, err := authenticatedKey(sess)
	if err != nil {
		return nil, err
	}
	data, err := crypto.EncryptJSON(domain.SignPayload{
		KeyType:   req.KeyType,
		Ops:       req.Ops,
		Broadcast: req.Broadcast,
		Nonce:     e.now().UnixMilli(),
	}, key)
	if err != nil {
		return nil, err
	}
	return &exchange{
		e:      e,
		kind:   domain.KindSignAndBroadcast,
		sess:   sess,
		key:    key,
		frame:  domain.Frame{Cmd: domain.CmdSignReq, Account: sess.Account, Token: token, Data: data},
		accept: acceptSign,
	}, nil
}

func (e *Engine) challengeExchange(sess *session.Session, req ChallengeRequest) (*exchange, error) {
	if sess == nil || sess.Account == "" {
		return nil, domain.Malformed("empty account")
	}
	if req.Challenge == "" {
		return nil, domain.Malformed("empty challenge")
	}
	if req.KeyType == "" {
		req.KeyType = domain.KeyTypePosting
	}
	if !req.KeyType.Valid() {
		return nil, domain.Malformed("unknown key type " + string(req.KeyType))
	}
	key, token, err := authenticatedKey(sess)
	if err != nil {
		return nil, err
	}
	data, err := crypto.EncryptJSON(domain.ChallengePayload{
		KeyType:   req.KeyType,
		Challenge: req.Challenge,
		Nonce:     e.now().UnixMilli(),
	}, key)
	if err != nil {
		return nil, err
	}
	return &exchange{
		e:      e,
		kind:   domain.KindChallengeSign,
		sess:   sess,
		key:    key,
		frame:  domain.Frame{Cmd: domain.CmdChallengeReq, Account: sess.Account, Token: token, Data: data},
		accept: acceptChallenge,
	}, nil
}

func authenticatedKey(sess *session.Session) ([]byte, string, error) {
	key, token := sess.Key(), sess.Token()
	if len(key) == 0 || token == "" {
		return nil, "", domain.Malformed("session is not authenticated")
	}
	return key, token, nil
}

// launch admits x and runs it, or resolves the handle at once when the
// request could not be built.
func (e *Engine) launch(ctx context.Context, kind domain.Kind, x *exchange, err error) *Handle {
	if err == nil {
		err = e.admit(x)
	}
	if err != nil {
		return e.reject(kind, err)
	}
	go x.run(ctx)
	return x.handle
}

func (e *Engine) admit(x *exchange) error {
	if !x.sess.Acquire() {
		crypto.Wipe(x.key)
		return domain.Malformed("another exchange is running on this session")
	}
	x.cmds = x.kind.Commands()
	x.handle = newHandle(x.kind)
	x.submittedAt = e.now()
	x.expiresAt = x.submittedAt.Add(e.conn.RequestTimeout())
	exchangesStarted.WithLabelValues(x.kind.String()).Inc()
	return nil
}

func (e *Engine) reject(kind domain.Kind, err error) *Handle {
	exchangeOutcomes.WithLabelValues(kind.String(), StateErrored.String()).Inc()
	log.WithError(err).WithField("kind", kind.String()).Warn("Request refused before sending")
	h := newHandle(kind)
	h.resolve(Result{State: StateErrored, Err: err})
	return h
}

func (e *Engine) acquireGate() bool {
	select {
	case e.gate <- struct{}{}:
		return true
	default:
		return false
	}
}

func (e *Engine) releaseGate() { <-e.gate }
