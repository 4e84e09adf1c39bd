package workflow

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pksalink/internal/crypto"
	"pksalink/internal/domain"
	"pksalink/internal/inbox"
	"pksalink/internal/session"
)

// fakeConn is a scripted domain.Connection. Hooks run outside its lock so
// they may push into the inbox.
type fakeConn struct {
	mu          sync.Mutex
	connected   bool
	epoch       uint64
	connectOK   bool
	timeout     time.Duration
	sent        []domain.Frame
	reattached  []string
	reattachErr error

	onSend     func(domain.Frame)
	onReattach func(uuid string)
}

func newFakeConn() *fakeConn {
	return &fakeConn{connectOK: true, timeout: time.Minute}
}

func (c *fakeConn) Connect(context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connectOK {
		return false
	}
	if !c.connected {
		c.connected = true
		c.epoch++
	}
	return true
}

func (c *fakeConn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeConn) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

func (c *fakeConn) Send(f domain.Frame) {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	c.sent = append(c.sent, f)
	hook := c.onSend
	c.mu.Unlock()
	if hook != nil {
		hook(f)
	}
}

func (c *fakeConn) Reattach(_ context.Context, _ domain.Account, uuid string, _ time.Time) error {
	c.mu.Lock()
	c.reattached = append(c.reattached, uuid)
	err, hook := c.reattachErr, c.onReattach
	c.mu.Unlock()
	if err == nil && hook != nil {
		hook(uuid)
	}
	return err
}

func (c *fakeConn) RequestTimeout() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeout
}

func (c *fakeConn) drop() {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
}

func (c *fakeConn) frames() []domain.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Frame(nil), c.sent...)
}

func (c *fakeConn) reattachedUUIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.reattached...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1_700_000_000, 0)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var testApp = domain.AppMetadata{Name: "pksalink-test", Description: "tests"}

func newTestEngine(t *testing.T, conn *fakeConn, opts ...Option) (*Engine, *inbox.Inbox) {
	t.Helper()
	in := inbox.New()
	opts = append([]Option{WithPollInterval(2 * time.Millisecond)}, opts...)
	return NewEngine(conn, in, opts...), in
}

func authedSession(t *testing.T, account domain.Account) (*session.Session, []byte) {
	t.Helper()
	key, err := crypto.NewSessionKey()
	require.NoError(t, err)
	s := session.New(account, testApp)
	s.Populate(key, "t0", time.Now().Add(time.Hour))
	return s, key
}

func push(in *inbox.Inbox, cmd domain.Command, uuid, data, errText string) {
	in.Push(domain.RelayMessage{
		Kind:      cmd,
		UUID:      uuid,
		Data:      data,
		Error:     errText,
		ExpiresAt: time.Now().Add(time.Minute),
	})
}

func seal(t *testing.T, v any, key []byte) string {
	t.Helper()
	ct, err := crypto.EncryptJSON(v, key)
	require.NoError(t, err)
	return ct
}

func waitResult(t *testing.T, h *Handle) Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r := h.Wait(ctx)
	require.NotErrorIs(t, r.Err, context.DeadlineExceeded, "exchange did not resolve")
	return r
}

func nextPending(t *testing.T, h *Handle) domain.Pending {
	t.Helper()
	select {
	case ev, ok := <-h.Pending():
		require.True(t, ok, "exchange resolved without a pending event")
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("no pending event")
	}
	return domain.Pending{}
}

func ops(raw ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(raw))
	for i, r := range raw {
		out[i] = json.RawMessage(r)
	}
	return out
}
