package session

import (
	"sync"
	"time"

	"pksalink/internal/crypto"
	"pksalink/internal/domain"
)

// Session is the authentication context of one account.
type Session struct {
	Account domain.Account
	App     domain.AppMetadata

	mu        sync.Mutex
	key       []byte
	token     string
	expiresAt time.Time
	busy      bool
}

// New returns an unauthenticated session.
func New(account domain.Account, app domain.AppMetadata) *Session {
	return &Session{Account: account, App: app}
}

// Restore rebuilds a session from persisted state.
func Restore(st domain.SessionState) *Session {
	s := New(st.Account, st.App)
	if len(st.SessionKey) > 0 {
		s.key = append([]byte(nil), st.SessionKey...)
	}
	s.token = st.Token
	s.expiresAt = st.ExpiresAt
	return s
}

// Acquire marks the session busy. It returns false if an exchange is already
// running against it.
func (s *Session) Acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	return true
}

// Release ends the running exchange.
func (s *Session) Release() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

// Populate records the result of a successful authentication.
func (s *Session) Populate(key []byte, token string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key != nil {
		crypto.Wipe(s.key)
	}
	s.key = append([]byte(nil), key...)
	s.token = token
	s.expiresAt = expiresAt
}

// Logout forgets the key, token and expiry. Account and App are kept.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	crypto.Wipe(s.key)
	s.key = nil
	s.token = ""
	s.expiresAt = time.Time{}
}

// Key returns a copy of the session key, or nil.
func (s *Session) Key() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return nil
	}
	return append([]byte(nil), s.key...)
}

// Token returns the continuation token.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// ExpiresAt returns when the token stops being accepted.
func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

// Authenticated reports whether the session holds a key and a token that has
// not expired at now.
func (s *Session) Authenticated(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.key) > 0 && s.token != "" && now.Before(s.expiresAt)
}

// Snapshot returns the persistable state.
func (s *Session) Snapshot() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := domain.SessionState{
		Account:   s.Account,
		App:       s.App,
		Token:     s.token,
		ExpiresAt: s.expiresAt,
	}
	if s.key != nil {
		st.SessionKey = append([]byte(nil), s.key...)
	}
	return st
}
