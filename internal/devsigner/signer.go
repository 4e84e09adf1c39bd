package devsigner

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pksalink/internal/crypto"
	"pksalink/internal/domain"
	"pksalink/internal/relay"
)

const DefaultTokenTTL = 24 * time.Hour

// ErrBadLink means an auth link could not be parsed.
var ErrBadLink = errors.New("malformed auth link")

// Config configures a Signer.
type Config struct {
	URL          string
	Accounts     []domain.Account
	SharedSecret string
	// Reject makes the signer nack every request.
	Reject   bool
	TokenTTL time.Duration
}

// Option configures a Signer.
type Option func(*Signer)

// WithDialer replaces the default WebSocket dialer.
func WithDialer(d relay.Dialer) Option {
	return func(s *Signer) { s.dialer = d }
}

type grant struct {
	account   domain.Account
	key       []byte
	expiresAt time.Time
}

// Signer is a simulated PKSA.
type Signer struct {
	cfg    Config
	dialer relay.Dialer
	priv   ed25519.PrivateKey
	pub    ed25519.PublicKey
	now    func() time.Time

	writeMu sync.Mutex
	conn    relay.Conn

	mu     sync.Mutex
	links  map[string][]byte       // request uuid -> session key from an auth link
	parked map[string]domain.Frame // auth requests waiting for their link
	grants map[string]grant        // token -> grant
}

// New returns a Signer with a fresh ed25519 key.
func New(cfg Config, opts ...Option) (*Signer, error) {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	priv, pub, err := crypto.GenerateEd25519()
	if err != nil {
		return nil, err
	}
	s := &Signer{
		cfg:    cfg,
		dialer: relay.WebsocketDialer{},
		priv:   priv,
		pub:    pub,
		now:    time.Now,
		links:  make(map[string][]byte),
		parked: make(map[string]domain.Frame),
		grants: make(map[string]grant),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// PublicKey returns the hex ed25519 key that signs challenges.
func (s *Signer) PublicKey() string { return hex.EncodeToString(s.pub) }

// Run connects, registers the accounts and answers requests until ctx ends
// or the connection fails.
func (s *Signer) Run(ctx context.Context) error {
	conn, err := s.dialer.Dial(ctx, s.cfg.URL)
	if err != nil {
		return fmt.Errorf("dial relay: %w", err)
	}
	s.writeMu.Lock()
	s.conn = conn
	s.writeMu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer conn.Close()

	s.send(domain.Frame{Cmd: domain.CmdRegisterReq, Accounts: s.cfg.Accounts})
	log.WithField("accounts", s.cfg.Accounts).Info("Signer online")

	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read relay: %w", err)
		}
		var f domain.Frame
		if err := json.Unmarshal(b, &f); err != nil {
			log.WithError(err).Debug("Ignoring undecodable frame")
			continue
		}
		s.handle(f)
	}
}

// AcceptLink hands the signer the session key of a pending login, the way a
// user scans the QR code an application shows.
func (s *Signer) AcceptLink(uri string) error {
	link, err := ParseLink(uri)
	if err != nil {
		return err
	}
	key, err := crypto.UnB64(link.Key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadLink, err)
	}

	s.mu.Lock()
	f, parked := s.parked[link.UUID]
	if parked {
		delete(s.parked, link.UUID)
	} else {
		s.links[link.UUID] = key
	}
	s.mu.Unlock()

	if parked {
		s.answerAuth(f, key)
	}
	return nil
}

// ParseLink decodes a has://auth_req/ link.
func ParseLink(uri string) (domain.AuthLink, error) {
	var link domain.AuthLink
	enc, ok := strings.CutPrefix(uri, domain.AuthLinkScheme)
	if !ok {
		return link, fmt.Errorf("%w: missing %s prefix", ErrBadLink, domain.AuthLinkScheme)
	}
	b, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return link, fmt.Errorf("%w: %v", ErrBadLink, err)
	}
	if err := json.Unmarshal(b, &link); err != nil {
		return link, fmt.Errorf("%w: %v", ErrBadLink, err)
	}
	if link.UUID == "" || link.Key == "" {
		return link, fmt.Errorf("%w: uuid and key are required", ErrBadLink)
	}
	return link, nil
}

func (s *Signer) handle(f domain.Frame) {
	switch f.Cmd {
	case domain.CmdConnected, domain.CmdRegisterAck:
	case domain.CmdAuthReq:
		s.onAuth(f)
	case domain.CmdSignReq:
		s.onSign(f)
	case domain.CmdChallengeReq:
		s.onChallenge(f)
	case domain.CmdError:
		log.WithField("error", f.Error).Warn("Relay reported an error")
	default:
		log.WithField("cmd", f.Cmd).Debug("Ignoring frame")
	}
}

func (s *Signer) onAuth(f domain.Frame) {
	if f.Key != "" && s.cfg.SharedSecret != "" {
		key, err := crypto.OpenKey(f.Key, s.cfg.SharedSecret)
		if err != nil {
			s.send(domain.Frame{Cmd: domain.CmdAuthErr, UUID: f.UUID, Error: "cannot open escrowed key"})
			return
		}
		s.answerAuth(f, key)
		return
	}

	s.mu.Lock()
	key, ok := s.links[f.UUID]
	if ok {
		delete(s.links, f.UUID)
	} else {
		s.parked[f.UUID] = f
	}
	s.mu.Unlock()
	if ok {
		s.answerAuth(f, key)
		return
	}
	log.WithField("uuid", f.UUID).Info("Waiting for auth link")
}

func (s *Signer) answerAuth(f domain.Frame, key []byte) {
	var req domain.AuthPayload
	if err := crypto.DecryptJSON(f.Data, key, &req); err != nil {
		s.send(domain.Frame{Cmd: domain.CmdAuthErr, UUID: f.UUID, Error: "cannot decrypt request"})
		return
	}
	if s.cfg.Reject {
		s.reply(f, domain.CmdAuthNack, f.UUID, key)
		return
	}

	token := uuid.NewString()
	expiresAt := s.now().Add(s.cfg.TokenTTL)
	ack := domain.AuthAck{Token: token, Expire: expiresAt.UnixMilli()}
	if req.Challenge != nil {
		ack.Challenge = s.sign(req.Challenge.Challenge)
	}

	s.mu.Lock()
	s.grants[token] = grant{account: f.Account, key: append([]byte(nil), key...), expiresAt: expiresAt}
	s.mu.Unlock()

	log.WithFields(logrus.Fields{"account": f.Account, "app": req.App.Name}).Info("Login approved")
	s.reply(f, domain.CmdAuthAck, ack, key)
}

func (s *Signer) onSign(f domain.Frame) {
	key, ok := s.grant(f)
	if !ok {
		s.send(domain.Frame{Cmd: domain.CmdSignErr, UUID: f.UUID, Error: "invalid token"})
		return
	}
	var req domain.SignPayload
	if err := crypto.DecryptJSON(f.Data, key, &req); err != nil {
		s.send(domain.Frame{Cmd: domain.CmdSignErr, UUID: f.UUID, Error: "cannot decrypt request"})
		return
	}
	if s.cfg.Reject {
		s.reply(f, domain.CmdSignNack, f.UUID, key)
		return
	}

	ops, _ := json.Marshal(req.Ops)
	sum := sha256.Sum256(ops)
	var result any = hex.EncodeToString(sum[:20])
	if !req.Broadcast {
		result = map[string]any{
			"operations": req.Ops,
			"signatures": []string{hex.EncodeToString(ed25519.Sign(s.priv, ops))},
		}
	}
	raw, _ := json.Marshal(result)
	s.reply(f, domain.CmdSignAck, domain.SignAck{Broadcast: req.Broadcast, Result: raw}, key)
}

func (s *Signer) onChallenge(f domain.Frame) {
	key, ok := s.grant(f)
	if !ok {
		s.send(domain.Frame{Cmd: domain.CmdChallengeErr, UUID: f.UUID, Error: "invalid token"})
		return
	}
	var req domain.ChallengePayload
	if err := crypto.DecryptJSON(f.Data, key, &req); err != nil {
		s.send(domain.Frame{Cmd: domain.CmdChallengeErr, UUID: f.UUID, Error: "cannot decrypt request"})
		return
	}
	if s.cfg.Reject {
		s.reply(f, domain.CmdChallengeNack, f.UUID, key)
		return
	}
	s.reply(f, domain.CmdChallengeAck, s.sign(req.Challenge), key)
}

func (s *Signer) grant(f domain.Frame) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grants[f.Token]
	if !ok || g.account != f.Account || !s.now().Before(g.expiresAt) {
		return nil, false
	}
	return g.key, true
}

func (s *Signer) sign(challenge string) *domain.ChallengeAck {
	sig := crypto.SignEd25519(s.priv, []byte(challenge))
	return &domain.ChallengeAck{Challenge: hex.EncodeToString(sig), PubKey: s.PublicKey()}
}

// reply encrypts v under key and sends it as cmd for the request f.
func (s *Signer) reply(f domain.Frame, cmd domain.Command, v any, key []byte) {
	data, err := crypto.EncryptJSON(v, key)
	if err != nil {
		log.WithError(err).Error("Could not encrypt reply")
		return
	}
	s.send(domain.Frame{Cmd: cmd, UUID: f.UUID, Data: data})
}

func (s *Signer) send(f domain.Frame) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.conn == nil {
		return
	}
	if err := s.conn.WriteJSON(f); err != nil {
		log.WithError(err).WithField("cmd", f.Cmd).Warn("Write failed")
	}
}
