package relay_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	logTest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"pksalink/internal/domain"
	"pksalink/internal/inbox"
	"pksalink/internal/relay"
)

// scriptedRelay is a TLS WebSocket server that opens every connection with
// hello and hands each inbound frame to onFrame.
type scriptedRelay struct {
	srv      *httptest.Server
	hello    domain.Frame
	onFrame  func(conn *websocket.Conn, f domain.Frame)
	accepted atomic.Int32

	mu    sync.Mutex
	conns []*websocket.Conn
}

func newScriptedRelay(t *testing.T, hello domain.Frame, onFrame func(*websocket.Conn, domain.Frame)) *scriptedRelay {
	t.Helper()
	r := &scriptedRelay{hello: hello, onFrame: onFrame}
	up := websocket.Upgrader{}
	r.srv = httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := up.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		r.accepted.Add(1)
		r.mu.Lock()
		r.conns = append(r.conns, conn)
		r.mu.Unlock()
		if r.hello.Cmd != "" {
			_ = conn.WriteJSON(r.hello)
		}
		for {
			var f domain.Frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			if r.onFrame != nil {
				r.onFrame(conn, f)
			}
		}
	}))
	t.Cleanup(r.srv.Close)
	return r
}

func (r *scriptedRelay) url() string {
	return "wss" + strings.TrimPrefix(r.srv.URL, "https")
}

func (r *scriptedRelay) dialer() relay.Dialer {
	tlsCfg := r.srv.Client().Transport.(*http.Transport).TLSClientConfig
	return relay.WebsocketDialer{Dialer: &websocket.Dialer{TLSClientConfig: tlsCfg}}
}

func (r *scriptedRelay) dropAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.conns {
		_ = c.Close()
	}
	r.conns = nil
}

func newManager(t *testing.T, r *scriptedRelay, in *inbox.Inbox) *relay.Manager {
	t.Helper()
	m := relay.NewManager(relay.Config{
		URL:              r.url(),
		HandshakeTimeout: 2 * time.Second,
		PollInterval:     5 * time.Millisecond,
	}, in, relay.WithDialer(r.dialer()))
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestConnect_HandshakeOverridesTimeout(t *testing.T) {
	r := newScriptedRelay(t, domain.Frame{Cmd: domain.CmdConnected, Protocol: 1, Timeout: 30}, nil)
	m := newManager(t, r, inbox.New())

	require.Equal(t, relay.DefaultRequestTimeout, m.RequestTimeout())
	require.True(t, m.Connect(context.Background()))
	require.True(t, m.Connected())
	require.Equal(t, 30*time.Second, m.RequestTimeout())
	require.Equal(t, 1.0, m.Protocol())
	require.Equal(t, uint64(1), m.Epoch())
}

func TestConnect_UnsupportedProtocolOnlyWarns(t *testing.T) {
	hook := logTest.NewGlobal()
	defer hook.Reset()

	r := newScriptedRelay(t, domain.Frame{Cmd: domain.CmdConnected, Protocol: 9}, nil)
	m := newManager(t, r, inbox.New())

	require.True(t, m.Connect(context.Background()))

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && strings.Contains(e.Message, "Unsupported relay protocol") {
			warned = true
		}
	}
	require.True(t, warned, "expected an unsupported protocol warning")
}

func TestConnect_NoHandshakeFails(t *testing.T) {
	r := newScriptedRelay(t, domain.Frame{Cmd: domain.CmdAuthWait}, nil)
	m := newManager(t, r, inbox.New())

	require.False(t, m.Connect(context.Background()))
	require.False(t, m.Connected())
}

func TestConnect_UnreachableReturnsFalse(t *testing.T) {
	r := newScriptedRelay(t, domain.Frame{Cmd: domain.CmdConnected}, nil)
	m := newManager(t, r, inbox.New())
	r.srv.Close()

	require.False(t, m.Connect(context.Background()))
}

func TestConnect_ConcurrentCallersShareOneSocket(t *testing.T) {
	r := newScriptedRelay(t, domain.Frame{Cmd: domain.CmdConnected, Protocol: 1}, nil)
	m := newManager(t, r, inbox.New())

	var wg sync.WaitGroup
	results := make([]bool, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = m.Connect(context.Background())
		}(i)
	}
	wg.Wait()

	for _, ok := range results {
		require.True(t, ok)
	}
	require.Equal(t, int32(1), r.accepted.Load())
	require.Equal(t, uint64(1), m.Epoch())
}

// gatedDialer holds every dial until release is closed.
type gatedDialer struct {
	inner   relay.Dialer
	entered chan struct{}
	release chan struct{}
}

func (d *gatedDialer) Dial(ctx context.Context, url string) (relay.Conn, error) {
	d.entered <- struct{}{}
	select {
	case <-d.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return d.inner.Dial(ctx, url)
}

func TestConnect_CancelledCallerDoesNotAbortSharedDial(t *testing.T) {
	r := newScriptedRelay(t, domain.Frame{Cmd: domain.CmdConnected, Protocol: 1}, nil)
	d := &gatedDialer{inner: r.dialer(), entered: make(chan struct{}, 1), release: make(chan struct{})}
	m := relay.NewManager(relay.Config{URL: r.url(), HandshakeTimeout: 2 * time.Second}, inbox.New(), relay.WithDialer(d))
	t.Cleanup(func() { _ = m.Close() })

	ctxA, cancelA := context.WithCancel(context.Background())
	resA := make(chan bool, 1)
	go func() { resA <- m.Connect(ctxA) }()
	<-d.entered

	resB := make(chan bool, 1)
	go func() { resB <- m.Connect(context.Background()) }()

	cancelA()
	select {
	case ok := <-resA:
		require.False(t, ok, "the cancelled caller gives up its own wait")
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	close(d.release)
	select {
	case ok := <-resB:
		require.True(t, ok, "a live caller must still get the connection")
	case <-time.After(2 * time.Second):
		t.Fatal("live caller never returned")
	}
	require.Equal(t, int32(1), r.accepted.Load())
	require.Equal(t, uint64(1), m.Epoch())
}

func TestReader_PushesFramesIntoInbox(t *testing.T) {
	r := newScriptedRelay(t, domain.Frame{Cmd: domain.CmdConnected, Protocol: 1}, func(c *websocket.Conn, f domain.Frame) {
		if f.Cmd == domain.CmdAuthReq {
			_ = c.WriteJSON(domain.Frame{Cmd: "notice"})
			_ = c.WriteJSON(domain.Frame{Cmd: domain.CmdAuthWait, UUID: "u1", Expire: time.Now().Add(time.Minute).UnixMilli()})
		}
	})
	in := inbox.New()
	m := newManager(t, r, in)
	require.True(t, m.Connect(context.Background()))

	m.Send(domain.Frame{Cmd: domain.CmdAuthReq, Account: "alice"})

	require.Eventually(t, func() bool { return in.Len() == 1 }, 2*time.Second, 5*time.Millisecond)
	got, ok := in.Take(domain.CmdAuthWait, "")
	require.True(t, ok)
	require.Equal(t, "u1", got.UUID)
}

func TestDisconnect_DetectedAndReconnected(t *testing.T) {
	r := newScriptedRelay(t, domain.Frame{Cmd: domain.CmdConnected, Protocol: 1}, nil)
	m := newManager(t, r, inbox.New())
	require.True(t, m.Connect(context.Background()))

	r.dropAll()
	require.Eventually(t, func() bool { return !m.Connected() }, 2*time.Second, 5*time.Millisecond)

	// Dropped silently while disconnected.
	m.Send(domain.Frame{Cmd: domain.CmdSignReq})

	require.True(t, m.Connect(context.Background()))
	require.Equal(t, uint64(2), m.Epoch())
}

func TestReattach(t *testing.T) {
	reply := map[string]domain.Command{"live": domain.CmdAttachAck, "gone": domain.CmdAttachNack}
	r := newScriptedRelay(t, domain.Frame{Cmd: domain.CmdConnected, Protocol: 1}, func(c *websocket.Conn, f domain.Frame) {
		if f.Cmd != domain.CmdAttachReq {
			return
		}
		if cmd, ok := reply[f.UUID]; ok {
			_ = c.WriteJSON(domain.Frame{Cmd: cmd, UUID: f.UUID})
		}
	})
	m := newManager(t, r, inbox.New())
	require.True(t, m.Connect(context.Background()))

	ctx := context.Background()
	deadline := time.Now().Add(500 * time.Millisecond)

	require.NoError(t, m.Reattach(ctx, "alice", "live", deadline))
	require.ErrorIs(t, m.Reattach(ctx, "alice", "gone", deadline), relay.ErrAttachRejected)
	require.ErrorIs(t, m.Reattach(ctx, "alice", "silent", time.Now().Add(50*time.Millisecond)), domain.ErrExpired)
}

func TestClose_PreventsReconnect(t *testing.T) {
	r := newScriptedRelay(t, domain.Frame{Cmd: domain.CmdConnected, Protocol: 1}, nil)
	m := newManager(t, r, inbox.New())
	require.True(t, m.Connect(context.Background()))

	require.NoError(t, m.Close())
	require.False(t, m.Connected())
	require.False(t, m.Connect(context.Background()))
}
