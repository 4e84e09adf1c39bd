package store

// UseFastKDF lowers the scrypt cost so tests do not spend seconds deriving keys.
func (s *SessionFileStore) UseFastKDF() { s.kdf = kdfParams{N: 1 << 10, R: 8, P: 1} }
