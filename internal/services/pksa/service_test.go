package pksa_test

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	logTest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"pksalink/internal/devsigner"
	"pksalink/internal/domain"
	"pksalink/internal/inbox"
	"pksalink/internal/protocol/workflow"
	"pksalink/internal/relay"
	"pksalink/internal/relayserver"
	"pksalink/internal/services/pksa"
	"pksalink/internal/store"
)

const pass = "correct horse"

var app = domain.AppMetadata{Name: "pksalink-e2e"}

type harness struct {
	svc    *pksa.Service
	signer *devsigner.Signer
}

// newHarness wires a service to an in-process relay hub and dev signer over
// TLS WebSockets.
func newHarness(t *testing.T, signerCfg devsigner.Config, opts ...workflow.Option) *harness {
	t.Helper()
	hub := relayserver.New(relayserver.Config{RequestTimeout: 30 * time.Second})
	srv := httptest.NewTLSServer(hub)
	t.Cleanup(srv.Close)

	url := "wss" + strings.TrimPrefix(srv.URL, "https")
	tlsCfg := srv.Client().Transport.(*http.Transport).TLSClientConfig
	dialer := relay.WebsocketDialer{Dialer: &websocket.Dialer{TLSClientConfig: tlsCfg}}

	signerCfg.URL = url
	signerCfg.Accounts = []domain.Account{"alice"}
	signer, err := devsigner.New(signerCfg, devsigner.WithDialer(dialer))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = signer.Run(ctx) }()

	in := inbox.New()
	m := relay.NewManager(relay.Config{URL: url, PollInterval: 5 * time.Millisecond}, in, relay.WithDialer(dialer))
	t.Cleanup(func() { _ = m.Close() })

	opts = append([]workflow.Option{workflow.WithPollInterval(5 * time.Millisecond)}, opts...)
	engine := workflow.NewEngine(m, in, opts...)
	return &harness{
		svc:    pksa.New(engine, store.NewSessionFileStore(t.TempDir()), app),
		signer: signer,
	}
}

// scan plays the user handing the auth link to the signer.
func (h *harness) scan(ev domain.Pending, _ func()) {
	if ev.Auth != nil {
		_ = h.signer.AcceptLink(ev.Auth.URI())
	}
}

func verify(t *testing.T, pubHex, sigHex, msg string) {
	t.Helper()
	pub, err := hex.DecodeString(pubHex)
	require.NoError(t, err)
	sig, err := hex.DecodeString(sigHex)
	require.NoError(t, err)
	require.True(t, ed25519.Verify(pub, []byte(msg), sig))
}

func TestLoginSignChallengeLogout(t *testing.T) {
	h := newHarness(t, devsigner.Config{})
	ctx := context.Background()

	ack, err := h.svc.Login(ctx, pass, "alice", &domain.ChallengePayload{Challenge: "prove it"}, h.scan)
	require.NoError(t, err)
	require.NotEmpty(t, ack.Token)
	require.NotNil(t, ack.Challenge)
	require.Equal(t, h.signer.PublicKey(), ack.Challenge.PubKey)
	verify(t, ack.Challenge.PubKey, ack.Challenge.Challenge, "prove it")

	st, ok, err := h.svc.Status(pass, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, ack.Token, st.Token)
	require.Len(t, st.SessionKey, 32)
	require.Equal(t, app, st.App)

	var pendingSign int
	signed, err := h.svc.Sign(ctx, pass, "alice", domain.KeyTypeActive,
		[]json.RawMessage{json.RawMessage(`["vote",{"voter":"alice","permlink":"p","weight":10000}]`)},
		true, func(domain.Pending, func()) { pendingSign++ })
	require.NoError(t, err)
	require.True(t, signed.Broadcast)
	var txid string
	require.NoError(t, json.Unmarshal(signed.Result, &txid))
	require.Len(t, txid, 40)

	ch, err := h.svc.Challenge(ctx, pass, "alice", domain.KeyTypePosting, "nonce-123", nil)
	require.NoError(t, err)
	verify(t, ch.PubKey, ch.Challenge, "nonce-123")

	require.NoError(t, h.svc.Logout(pass, "alice"))
	st, ok, err = h.svc.Status(pass, "alice")
	require.NoError(t, err)
	require.True(t, ok, "logout keeps the account record")
	require.Equal(t, domain.Account("alice"), st.Account)
	require.Equal(t, app, st.App)
	require.Empty(t, st.SessionKey)
	require.Empty(t, st.Token)
	require.True(t, st.ExpiresAt.IsZero())

	_, err = h.svc.Sign(ctx, pass, "alice", domain.KeyTypeActive, []json.RawMessage{json.RawMessage(`[]`)}, false, nil)
	require.ErrorIs(t, err, pksa.ErrNotLoggedIn)
	require.Equal(t, 1, pendingSign)

	require.NoError(t, h.svc.Forget(pass, "alice"))
	_, ok, err = h.svc.Status(pass, "alice")
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, h.svc.Forget(pass, "alice"), "forgetting an unknown account is a no-op")
}

func TestLogin_LogsResolvedExchangeKind(t *testing.T) {
	hook := logTest.NewGlobal()
	defer hook.Reset()
	level := logrus.GetLevel()
	logrus.SetLevel(logrus.DebugLevel)
	defer logrus.SetLevel(level)

	h := newHarness(t, devsigner.Config{SharedSecret: "relay-secret"}, workflow.WithSharedSecret("relay-secret"))
	_, err := h.svc.Login(context.Background(), pass, "alice", nil, nil)
	require.NoError(t, err)

	var kind any
	for _, e := range hook.AllEntries() {
		if e.Message == "Exchange resolved" {
			kind = e.Data["kind"]
		}
	}
	require.Equal(t, domain.KindAuthenticate, kind)
}

func TestLogin_EscrowedKeyNeedsNoLink(t *testing.T) {
	h := newHarness(t, devsigner.Config{SharedSecret: "relay-secret"}, workflow.WithSharedSecret("relay-secret"))

	ack, err := h.svc.Login(context.Background(), pass, "alice", nil, nil)
	require.NoError(t, err)
	require.NotEmpty(t, ack.Token)
	require.Nil(t, ack.Challenge)
}

func TestLogin_RejectedBySigner(t *testing.T) {
	h := newHarness(t, devsigner.Config{Reject: true})

	_, err := h.svc.Login(context.Background(), pass, "alice", nil, h.scan)
	require.ErrorIs(t, err, domain.ErrRejected)

	_, ok, err := h.svc.Status(pass, "alice")
	require.NoError(t, err)
	require.False(t, ok, "a rejected login must not store a session")
}

func TestLogin_CancelledFromPending(t *testing.T) {
	h := newHarness(t, devsigner.Config{})

	_, err := h.svc.Login(context.Background(), pass, "alice", nil, func(_ domain.Pending, cancel func()) {
		cancel()
	})
	require.ErrorIs(t, err, domain.ErrCancelled)
}

func TestLogin_WrongPassphraseForStoredSession(t *testing.T) {
	h := newHarness(t, devsigner.Config{})
	_, err := h.svc.Login(context.Background(), pass, "alice", nil, h.scan)
	require.NoError(t, err)

	_, _, err = h.svc.Status("not the passphrase", "alice")
	require.ErrorIs(t, err, store.ErrWrongPassphrase)
}
