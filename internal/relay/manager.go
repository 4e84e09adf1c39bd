package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"pksalink/internal/domain"
)

const (
	// SupportedProtocol is the highest relay protocol version this client speaks.
	SupportedProtocol = 1.0

	DefaultURL              = "wss://hive-auth.arcange.eu"
	DefaultRequestTimeout   = 60 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultPollInterval     = 250 * time.Millisecond
)

var (
	// ErrAttachRejected means the relay no longer knows the request being reattached.
	ErrAttachRejected = errors.New("relay rejected attach request")
	// ErrNoHandshake means the server did not open with a connected frame.
	ErrNoHandshake = errors.New("relay did not send a connected frame")
)

// Config holds connection settings. Zero durations take the defaults.
type Config struct {
	URL              string
	HandshakeTimeout time.Duration
	RequestTimeout   time.Duration
	PollInterval     time.Duration
}

func (c *Config) fixup() {
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithDialer replaces the default WebSocket dialer.
func WithDialer(d Dialer) Option {
	return func(m *Manager) { m.dialer = d }
}

// WithClock overrides the time source used for message expiry and reattach
// deadlines.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager owns the relay socket shared by every exchange of a client.
type Manager struct {
	cfg    Config
	dialer Dialer
	inbox  domain.Inbox
	now    func() time.Time

	mu        sync.Mutex
	conn      Conn
	connected bool
	dialing   chan struct{}
	epoch     uint64
	timeout   time.Duration
	protocol  float64
	closed    bool

	writeMu sync.Mutex
}

// NewManager returns a disconnected manager that delivers inbound frames to in.
func NewManager(cfg Config, in domain.Inbox, opts ...Option) *Manager {
	cfg.fixup()
	m := &Manager{
		cfg:     cfg,
		dialer:  WebsocketDialer{},
		inbox:   in,
		now:     time.Now,
		timeout: cfg.RequestTimeout,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Connect makes sure a socket is open. A caller arriving while another dial
// is in flight waits for that dial instead of opening a second socket. The
// dial is bounded by the handshake timeout and does not belong to any one
// caller: cancelling ctx only abandons this caller's wait.
func (m *Manager) Connect(ctx context.Context) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	if m.connected {
		m.mu.Unlock()
		return true
	}
	ch := m.dialing
	if ch == nil {
		ch = make(chan struct{})
		m.dialing = ch
		go m.dialShared(context.WithoutCancel(ctx), ch)
	}
	m.mu.Unlock()

	select {
	case <-ch:
		return m.Connected()
	case <-ctx.Done():
		return false
	}
}

func (m *Manager) dialShared(ctx context.Context, done chan struct{}) {
	m.dial(ctx)

	m.mu.Lock()
	m.dialing = nil
	m.mu.Unlock()
	close(done)
}

func (m *Manager) dial(ctx context.Context) bool {
	dctx, cancel := context.WithTimeout(ctx, m.cfg.HandshakeTimeout)
	defer cancel()

	conn, err := m.dialer.Dial(dctx, m.cfg.URL)
	if err != nil {
		connectsTotal.WithLabelValues("unreachable").Inc()
		log.WithError(err).WithField("url", m.cfg.URL).Warn("Could not reach relay")
		return false
	}
	deadline, _ := dctx.Deadline()
	hs, err := m.handshake(conn, deadline)
	if err != nil {
		connectsTotal.WithLabelValues("handshake").Inc()
		log.WithError(err).WithField("url", m.cfg.URL).Warn("Relay handshake failed")
		_ = conn.Close()
		return false
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = conn.Close()
		return false
	}
	m.conn = conn
	m.connected = true
	m.epoch++
	epoch := m.epoch
	m.applyHandshakeLocked(hs)
	m.mu.Unlock()

	connectsTotal.WithLabelValues("ok").Inc()
	log.WithFields(logrus.Fields{
		"url":      m.cfg.URL,
		"server":   hs.Server,
		"protocol": hs.Protocol,
		"epoch":    epoch,
	}).Info("Connected to relay")

	go m.readLoop(conn)
	return true
}

func (m *Manager) handshake(conn Conn, deadline time.Time) (domain.Frame, error) {
	if err := conn.SetReadDeadline(deadline); err != nil {
		return domain.Frame{}, err
	}
	_, b, err := conn.ReadMessage()
	if err != nil {
		return domain.Frame{}, err
	}
	var f domain.Frame
	if err := json.Unmarshal(b, &f); err != nil {
		return domain.Frame{}, fmt.Errorf("decode handshake: %w", err)
	}
	if f.Cmd != domain.CmdConnected {
		return domain.Frame{}, fmt.Errorf("%w: got %q", ErrNoHandshake, f.Cmd)
	}
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return domain.Frame{}, err
	}
	return f, nil
}

func (m *Manager) applyHandshakeLocked(f domain.Frame) {
	if f.Timeout > 0 {
		m.timeout = time.Duration(f.Timeout) * time.Second
	}
	m.protocol = f.Protocol
	if f.Protocol > SupportedProtocol {
		log.WithFields(logrus.Fields{
			"server":    f.Protocol,
			"supported": SupportedProtocol,
		}).Warn("Unsupported relay protocol version")
	}
}

func (m *Manager) readLoop(conn Conn) {
	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			m.drop(conn, err)
			return
		}
		var f domain.Frame
		if err := json.Unmarshal(b, &f); err != nil {
			log.WithError(err).Debug("Ignoring undecodable frame")
			continue
		}
		m.handleFrame(f)
	}
}

func (m *Manager) handleFrame(f domain.Frame) {
	framesReceived.WithLabelValues(string(f.Cmd)).Inc()
	log.WithFields(logrus.Fields{"cmd": f.Cmd, "uuid": f.UUID}).Debug("Received frame")

	if f.Cmd == domain.CmdConnected {
		m.mu.Lock()
		m.applyHandshakeLocked(f)
		m.mu.Unlock()
		return
	}
	m.inbox.Push(domain.MessageFromFrame(f, m.now(), m.RequestTimeout()))
}

func (m *Manager) drop(conn Conn, err error) {
	m.mu.Lock()
	current := m.conn == conn
	if current {
		m.conn = nil
		m.connected = false
	}
	closed := m.closed
	m.mu.Unlock()

	_ = conn.Close()
	if current && !closed {
		log.WithError(err).Warn("Relay connection lost")
	}
}

// Send writes frame to the relay. Without a connection the frame is dropped.
func (m *Manager) Send(frame domain.Frame) {
	m.mu.Lock()
	conn, connected := m.conn, m.connected
	m.mu.Unlock()

	if !connected {
		framesDropped.Inc()
		log.WithField("cmd", frame.Cmd).Debug("Dropping frame, relay not connected")
		return
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	_ = conn.SetWriteDeadline(m.now().Add(m.cfg.HandshakeTimeout))
	if err := conn.WriteJSON(frame); err != nil {
		m.drop(conn, err)
		return
	}
	framesSent.WithLabelValues(string(frame.Cmd)).Inc()
	log.WithFields(logrus.Fields{"cmd": frame.Cmd, "uuid": frame.UUID}).Debug("Sent frame")
}

// Reattach binds a request the relay already knows to the current socket. It
// waits for attach_ack or attach_nack until deadline or the request timeout,
// whichever comes first, polling the inbox like any other exchange.
func (m *Manager) Reattach(ctx context.Context, account domain.Account, uuid string, deadline time.Time) error {
	limit := m.now().Add(m.RequestTimeout())
	if !deadline.IsZero() && deadline.Before(limit) {
		limit = deadline
	}

	m.Send(domain.Frame{Cmd: domain.CmdAttachReq, Account: account, UUID: uuid})

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()
	for {
		if !m.now().Before(limit) {
			return domain.ErrExpired
		}
		if msg, ok := m.inbox.TakeFirst(uuid, domain.CmdAttachAck, domain.CmdAttachNack); ok {
			if msg.Kind == domain.CmdAttachAck {
				log.WithField("uuid", uuid).Info("Reattached request")
				return nil
			}
			return ErrAttachRejected
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Connected reports whether a socket is open.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Epoch returns the number of successful connects so far.
func (m *Manager) Epoch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch
}

// RequestTimeout returns the request expiry in force: the server's value once
// a handshake declared one, the configured default before that.
func (m *Manager) RequestTimeout() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeout
}

// Protocol returns the protocol version the server advertised.
func (m *Manager) Protocol() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.protocol
}

// PollInterval returns the interval used while waiting for relay answers.
func (m *Manager) PollInterval() time.Duration { return m.cfg.PollInterval }

// Close tears down the socket. A closed manager never reconnects.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	conn := m.conn
	m.conn = nil
	m.connected = false
	m.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

var _ domain.Connection = (*Manager)(nil)
