package store

import (
	"encoding/json"
	"path/filepath"
	"sort"
	"sync"

	"pksalink/internal/domain"
)

const sessionsFilename = "sessions.json.enc"

// SessionFileStore keeps every account's session in one sealed file.
type SessionFileStore struct {
	dir string
	kdf kdfParams
	mu  sync.Mutex
}

// NewSessionFileStore returns a SessionFileStore rooted at dir.
func NewSessionFileStore(dir string) *SessionFileStore {
	return &SessionFileStore{dir: dir, kdf: defaultKDF}
}

// Path returns the location of the session file.
func (s *SessionFileStore) Path() string {
	return filepath.Join(s.dir, sessionsFilename)
}

// SaveSession stores state under its account, replacing any earlier one.
func (s *SessionFileStore) SaveSession(passphrase string, state domain.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load(passphrase)
	if err != nil {
		return err
	}
	sessions[state.Account] = state
	return s.save(passphrase, sessions)
}

// LoadSession retrieves the stored session of account.
func (s *SessionFileStore) LoadSession(passphrase string, account domain.Account) (domain.SessionState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load(passphrase)
	if err != nil {
		return domain.SessionState{}, false, err
	}
	st, ok := sessions[account]
	return st, ok, nil
}

// DeleteSession forgets the session of account. Deleting an unknown account
// is not an error.
func (s *SessionFileStore) DeleteSession(passphrase string, account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load(passphrase)
	if err != nil {
		return err
	}
	if _, ok := sessions[account]; !ok {
		return nil
	}
	delete(sessions, account)
	return s.save(passphrase, sessions)
}

// Accounts lists the accounts with a stored session, sorted.
func (s *SessionFileStore) Accounts(passphrase string) ([]domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load(passphrase)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Account, 0, len(sessions))
	for a := range sessions {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *SessionFileStore) load(passphrase string) (map[domain.Account]domain.SessionState, error) {
	sessions := map[domain.Account]domain.SessionState{}
	b, err := readFile(s.Path())
	if err != nil || b == nil {
		return sessions, err
	}
	raw, err := open(passphrase, b)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *SessionFileStore) save(passphrase string, sessions map[domain.Account]domain.SessionState) error {
	raw, err := json.Marshal(sessions)
	if err != nil {
		return err
	}
	blob, err := seal(passphrase, raw, s.kdf)
	if err != nil {
		return err
	}
	return writeFile(s.Path(), blob, 0o600)
}

// Compile-time assertion that SessionFileStore implements domain.SessionStore.
var _ domain.SessionStore = (*SessionFileStore)(nil)
