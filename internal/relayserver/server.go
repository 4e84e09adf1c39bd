package relayserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"pksalink/internal/domain"
)

const (
	// Protocol is the relay protocol version advertised in connected frames.
	Protocol = 1.0

	DefaultRequestTimeout = 60 * time.Second
	DefaultSweepInterval  = time.Second
	DefaultServerName     = "pksalink-relay"
)

// Config holds hub settings. Zero values take the defaults.
type Config struct {
	RequestTimeout time.Duration
	SweepInterval  time.Duration
	ServerName     string
}

func (c *Config) fixup() {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	if c.ServerName == "" {
		c.ServerName = DefaultServerName
	}
}

// request is a live request the hub has assigned a uuid to.
type request struct {
	uuid      string
	account   domain.Account
	frame     domain.Frame
	app       *client
	expiresAt time.Time
	queued    bool
	buffered  []domain.Frame
}

// Server is the relay hub. It implements http.Handler.
type Server struct {
	cfg      Config
	upgrader websocket.Upgrader
	now      func() time.Time

	mu       sync.Mutex
	signers  map[domain.Account]*client
	requests map[string]*request
	clients  int
}

// New returns a hub with no connections.
func New(cfg Config) *Server {
	cfg.fixup()
	return &Server{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		now:      time.Now,
		signers:  make(map[domain.Account]*client),
		requests: make(map[string]*request),
	}
}

// ServeHTTP upgrades the connection and serves frames until it closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Debug("Upgrade failed")
		return
	}
	c := newClient(uuid.NewString()[:8], conn)
	connectionsGauge.Inc()
	defer connectionsGauge.Dec()
	s.mu.Lock()
	s.clients++
	s.mu.Unlock()
	log.WithFields(logrus.Fields{"client": c.id, "remote": r.RemoteAddr}).Debug("Client connected")

	go c.writeLoop()
	c.push(domain.Frame{
		Cmd:      domain.CmdConnected,
		Server:   s.cfg.ServerName,
		Protocol: Protocol,
		Timeout:  int(s.cfg.RequestTimeout / time.Second),
	})

	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var f domain.Frame
		if err := json.Unmarshal(b, &f); err != nil {
			c.push(domain.Frame{Cmd: domain.CmdError, Error: "invalid frame"})
			continue
		}
		s.handle(c, f)
	}
	s.disconnect(c)
	c.close()
}

// Run sweeps expired requests until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *Server) handle(c *client, f domain.Frame) {
	entry := log.WithFields(logrus.Fields{"client": c.id, "cmd": f.Cmd, "uuid": f.UUID})
	entry.Debug("Frame received")

	switch {
	case f.Cmd == domain.CmdRegisterReq:
		s.register(c, f.Accounts)
	case f.Cmd == domain.CmdAttachReq:
		s.attach(c, f.UUID)
	case isRequest(f.Cmd):
		s.submit(c, f)
	case isOutcome(f.Cmd):
		s.route(c, f)
	default:
		c.push(domain.Frame{Cmd: domain.CmdError, UUID: f.UUID, Error: "unsupported command " + string(f.Cmd)})
	}
}

func (s *Server) register(c *client, accounts []domain.Account) {
	var flush []domain.Frame
	s.mu.Lock()
	for _, a := range accounts {
		s.signers[a] = c
	}
	for _, req := range s.requests {
		if req.queued && s.signers[req.account] == c {
			req.queued = false
			flush = append(flush, req.frame)
		}
	}
	s.mu.Unlock()

	c.push(domain.Frame{Cmd: domain.CmdRegisterAck, Accounts: accounts})
	for _, f := range flush {
		c.push(f)
	}
	log.WithFields(logrus.Fields{"client": c.id, "accounts": accounts, "flushed": len(flush)}).Info("Signer registered")
}

func (s *Server) submit(c *client, f domain.Frame) {
	kind, _ := domain.KindOf(f.Cmd)
	cmds := kind.Commands()
	if f.Account == "" {
		c.push(domain.Frame{Cmd: cmds.Err, Error: "missing account"})
		return
	}

	now := s.now()
	req := &request{
		uuid:      uuid.NewString(),
		account:   f.Account,
		app:       c,
		expiresAt: now.Add(s.cfg.RequestTimeout),
	}
	expire := req.expiresAt.UnixMilli()
	req.frame = f
	req.frame.UUID = req.uuid
	req.frame.Expire = expire

	s.mu.Lock()
	s.requests[req.uuid] = req
	signer := s.signers[f.Account]
	req.queued = signer == nil
	s.mu.Unlock()
	pendingRequestsGauge.Inc()

	c.push(domain.Frame{Cmd: cmds.Wait, UUID: req.uuid, Account: f.Account, Expire: expire})
	if signer != nil {
		signer.push(req.frame)
	}
}

func (s *Server) route(c *client, f domain.Frame) {
	s.mu.Lock()
	req, ok := s.requests[f.UUID]
	if !ok {
		s.mu.Unlock()
		c.push(domain.Frame{Cmd: domain.CmdError, UUID: f.UUID, Error: "unknown request"})
		return
	}
	if s.signers[req.account] != c {
		s.mu.Unlock()
		log.WithFields(logrus.Fields{"uuid": f.UUID, "account": req.account}).
			Warn("Outcome from a connection that is not the account's signer")
		c.push(domain.Frame{Cmd: domain.CmdError, UUID: f.UUID, Error: "not the signer for this request"})
		return
	}
	app := req.app
	if app == nil {
		req.buffered = append(req.buffered, f)
	} else {
		s.forgetLocked(req)
	}
	s.mu.Unlock()

	if app == nil {
		log.WithField("uuid", f.UUID).Debug("Application detached, buffering outcome")
		return
	}
	app.push(f)
}

func (s *Server) attach(c *client, id string) {
	s.mu.Lock()
	req, ok := s.requests[id]
	if !ok || !s.now().Before(req.expiresAt) {
		s.mu.Unlock()
		c.push(domain.Frame{Cmd: domain.CmdAttachNack, UUID: id})
		return
	}
	req.app = c
	buffered := req.buffered
	req.buffered = nil
	if len(buffered) > 0 {
		s.forgetLocked(req)
	}
	s.mu.Unlock()

	c.push(domain.Frame{Cmd: domain.CmdAttachAck, UUID: id, Expire: req.expiresAt.UnixMilli()})
	for _, f := range buffered {
		c.push(f)
	}
}

// disconnect detaches c from its requests and drops its registrations.
func (s *Server) disconnect(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients--
	for a, sc := range s.signers {
		if sc == c {
			delete(s.signers, a)
		}
	}
	for _, req := range s.requests {
		if req.app == c {
			req.app = nil
		}
	}
	log.WithField("client", c.id).Debug("Client disconnected")
}

// Sweep forgets requests whose deadline has passed.
func (s *Server) Sweep() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, req := range s.requests {
		if !now.Before(req.expiresAt) {
			s.forgetLocked(req)
			requestsExpired.Inc()
			log.WithFields(logrus.Fields{"uuid": req.uuid, "account": req.account}).Debug("Request expired")
		}
	}
}

// Pending returns the number of live requests.
func (s *Server) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Connections returns the number of open connections.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clients
}

func (s *Server) forgetLocked(req *request) {
	if _, ok := s.requests[req.uuid]; ok {
		delete(s.requests, req.uuid)
		pendingRequestsGauge.Dec()
	}
}

func isRequest(cmd domain.Command) bool {
	_, ok := domain.KindOf(cmd)
	return ok
}

func isOutcome(cmd domain.Command) bool {
	c := string(cmd)
	if !strings.HasPrefix(c, "auth_") && !strings.HasPrefix(c, "sign_") && !strings.HasPrefix(c, "challenge_") {
		return false
	}
	return strings.HasSuffix(c, "_ack") || strings.HasSuffix(c, "_nack") || strings.HasSuffix(c, "_err")
}
