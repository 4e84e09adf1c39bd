package store_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pksalink/internal/domain"
	"pksalink/internal/store"
)

func newStore(t *testing.T) *store.SessionFileStore {
	t.Helper()
	s := store.NewSessionFileStore(filepath.Join(t.TempDir(), "home"))
	s.UseFastKDF()
	return s
}

func sampleState(account domain.Account) domain.SessionState {
	return domain.SessionState{
		Account:    account,
		App:        domain.AppMetadata{Name: "demo"},
		SessionKey: []byte("0123456789abcdef0123456789abcdef"),
		Token:      "t1",
		ExpiresAt:  time.UnixMilli(1_700_000_000_000).UTC(),
	}
}

func TestSession_SaveLoad_OK(t *testing.T) {
	var ss domain.SessionStore = newStore(t)

	want := sampleState("alice")
	if err := ss.SaveSession("pass", want); err != nil {
		t.Fatalf("save session: %v", err)
	}

	got, ok, err := ss.LoadSession("pass", "alice")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if !ok {
		t.Fatal("session not found after save")
	}
	if got.Token != want.Token || string(got.SessionKey) != string(want.SessionKey) || !got.ExpiresAt.Equal(want.ExpiresAt) {
		t.Fatalf("mismatch after load: %+v", got)
	}
	if got.App != want.App {
		t.Fatalf("app metadata lost: %+v", got.App)
	}
}

func TestSession_MissingFileIsEmpty(t *testing.T) {
	s := newStore(t)
	_, ok, err := s.LoadSession("pass", "alice")
	if err != nil || ok {
		t.Fatalf("expected no session and no error, got ok=%v err=%v", ok, err)
	}
}

func TestSession_WrongPassphrase_Fails(t *testing.T) {
	s := newStore(t)
	if err := s.SaveSession("correct", sampleState("alice")); err != nil {
		t.Fatalf("save session: %v", err)
	}
	_, _, err := s.LoadSession("wrong", "alice")
	if !errors.Is(err, store.ErrWrongPassphrase) {
		t.Fatalf("expected ErrWrongPassphrase, got %v", err)
	}
}

func TestSession_FileIsSealed(t *testing.T) {
	s := newStore(t)
	if err := s.SaveSession("pass", sampleState("alice")); err != nil {
		t.Fatalf("save session: %v", err)
	}
	b, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if strings.Contains(string(b), "alice") || strings.Contains(string(b), "t1") {
		t.Fatal("session file leaks plaintext")
	}
	info, err := os.Stat(s.Path())
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("unexpected mode %v", info.Mode().Perm())
	}
}

func TestSession_DeleteKeepsOthers(t *testing.T) {
	s := newStore(t)
	for _, a := range []domain.Account{"alice", "bob"} {
		if err := s.SaveSession("pass", sampleState(a)); err != nil {
			t.Fatalf("save %s: %v", a, err)
		}
	}
	if err := s.DeleteSession("pass", "alice"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteSession("pass", "carol"); err != nil {
		t.Fatalf("delete unknown account: %v", err)
	}

	accounts, err := s.Accounts("pass")
	if err != nil {
		t.Fatalf("accounts: %v", err)
	}
	if len(accounts) != 1 || accounts[0] != "bob" {
		t.Fatalf("unexpected accounts %v", accounts)
	}
}
