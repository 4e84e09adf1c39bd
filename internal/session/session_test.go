package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pksalink/internal/domain"
	"pksalink/internal/session"
)

var app = domain.AppMetadata{Name: "demo"}

func TestPopulateAndLogout(t *testing.T) {
	now := time.Now()
	s := session.New("alice", app)
	require.False(t, s.Authenticated(now))

	s.Populate([]byte("0123456789abcdef0123456789abcdef"), "t1", now.Add(time.Hour))
	require.True(t, s.Authenticated(now))
	require.Equal(t, "t1", s.Token())
	require.False(t, s.Authenticated(now.Add(2*time.Hour)))

	s.Logout()
	require.False(t, s.Authenticated(now))
	require.Nil(t, s.Key())
	require.Empty(t, s.Token())
	require.True(t, s.ExpiresAt().IsZero())
	require.Equal(t, domain.Account("alice"), s.Account)
	require.Equal(t, app, s.App)
}

func TestKeyIsCopied(t *testing.T) {
	s := session.New("alice", app)
	key := []byte("0123456789abcdef0123456789abcdef")
	s.Populate(key, "t1", time.Now().Add(time.Hour))

	got := s.Key()
	got[0] = 'X'
	require.Equal(t, byte('0'), s.Key()[0])
}

func TestSnapshotRestore(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Millisecond)
	s := session.New("alice", app)
	s.Populate([]byte("0123456789abcdef0123456789abcdef"), "t1", exp)

	r := session.Restore(s.Snapshot())
	require.Equal(t, s.Key(), r.Key())
	require.Equal(t, "t1", r.Token())
	require.True(t, exp.Equal(r.ExpiresAt()))
}

func TestAcquireIsExclusive(t *testing.T) {
	s := session.New("alice", app)
	require.True(t, s.Acquire())
	require.False(t, s.Acquire())
	s.Release()
	require.True(t, s.Acquire())
}
