package pksa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"pksalink/internal/crypto"
	"pksalink/internal/domain"
	"pksalink/internal/protocol/workflow"
	"pksalink/internal/session"
)

// ErrNotLoggedIn means the account has no stored session that is still valid.
var ErrNotLoggedIn = errors.New("no active session for account, log in first")

// Service implements domain.SignerService on top of a workflow engine and a
// session store.
type Service struct {
	engine *workflow.Engine
	store  domain.SessionStore
	app    domain.AppMetadata
	now    func() time.Time
}

// New constructs a Service. app is presented to the signer on every login.
func New(engine *workflow.Engine, store domain.SessionStore, app domain.AppMetadata) *Service {
	return &Service{engine: engine, store: store, app: app, now: time.Now}
}

// Login authenticates account with its signer and stores the resulting
// session.
//
// Steps:
//  1. Restore any stored session so a still valid token is offered for reuse.
//  2. Run an authenticate exchange; the pending event carries the auth link
//     the user hands to the signer.
//  3. Persist the populated session under passphrase.
func (s *Service) Login(
	ctx context.Context,
	passphrase string,
	account domain.Account,
	challenge *domain.ChallengePayload,
	onPending domain.PendingFunc,
) (domain.AuthAck, error) {
	st, ok, err := s.store.LoadSession(passphrase, account)
	if err != nil {
		return domain.AuthAck{}, err
	}
	sess := session.New(account, s.app)
	if ok {
		sess = session.Restore(st)
		sess.App = s.app
	}

	r := await(s.engine.Authenticate(ctx, sess, workflow.AuthRequest{Challenge: challenge}), onPending)
	if r.Err != nil {
		return domain.AuthAck{}, fmt.Errorf("login %s: %w", account, r.Err)
	}

	if err := s.store.SaveSession(passphrase, sess.Snapshot()); err != nil {
		return domain.AuthAck{}, fmt.Errorf("save session: %w", err)
	}
	log.WithField("account", account).
		WithField("key", crypto.Fingerprint(sess.Key())).
		Info("Logged in")
	return r.Data.(domain.AuthAck), nil
}

// Sign asks the signer of account to sign ops, broadcasting them when
// broadcast is set.
func (s *Service) Sign(
	ctx context.Context,
	passphrase string,
	account domain.Account,
	keyType domain.KeyType,
	ops []json.RawMessage,
	broadcast bool,
	onPending domain.PendingFunc,
) (domain.SignAck, error) {
	sess, err := s.active(passphrase, account)
	if err != nil {
		return domain.SignAck{}, err
	}
	r := await(s.engine.SignAndBroadcast(ctx, sess, workflow.SignRequest{
		KeyType:   keyType,
		Ops:       ops,
		Broadcast: broadcast,
	}), onPending)
	if r.Err != nil {
		return domain.SignAck{}, fmt.Errorf("sign for %s: %w", account, r.Err)
	}
	return r.Data.(domain.SignAck), nil
}

// Challenge asks the signer of account to sign challenge with keyType.
func (s *Service) Challenge(
	ctx context.Context,
	passphrase string,
	account domain.Account,
	keyType domain.KeyType,
	challenge string,
	onPending domain.PendingFunc,
) (domain.ChallengeAck, error) {
	sess, err := s.active(passphrase, account)
	if err != nil {
		return domain.ChallengeAck{}, err
	}
	r := await(s.engine.ChallengeSign(ctx, sess, workflow.ChallengeRequest{
		KeyType:   keyType,
		Challenge: challenge,
	}), onPending)
	if r.Err != nil {
		return domain.ChallengeAck{}, fmt.Errorf("challenge for %s: %w", account, r.Err)
	}
	return r.Data.(domain.ChallengeAck), nil
}

// Logout ends the session of account. The stored record keeps the account
// and app metadata; the key, token and expiry are wiped.
func (s *Service) Logout(passphrase string, account domain.Account) error {
	st, ok, err := s.store.LoadSession(passphrase, account)
	if err != nil || !ok {
		return err
	}
	sess := session.Restore(st)
	crypto.Wipe(st.SessionKey)
	sess.Logout()
	if err := s.store.SaveSession(passphrase, sess.Snapshot()); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	log.WithField("account", account).Info("Logged out")
	return nil
}

// Forget logs account out and removes its stored record altogether.
func (s *Service) Forget(passphrase string, account domain.Account) error {
	if err := s.Logout(passphrase, account); err != nil {
		return err
	}
	return s.store.DeleteSession(passphrase, account)
}

// Status returns the stored session of account, if any.
func (s *Service) Status(passphrase string, account domain.Account) (domain.SessionState, bool, error) {
	return s.store.LoadSession(passphrase, account)
}

func (s *Service) active(passphrase string, account domain.Account) (*session.Session, error) {
	st, ok, err := s.store.LoadSession(passphrase, account)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotLoggedIn, account)
	}
	sess := session.Restore(st)
	if !sess.Authenticated(s.now()) {
		return nil, fmt.Errorf("%w: %s (session expired %s)", ErrNotLoggedIn, account, st.ExpiresAt.Format(time.RFC3339))
	}
	return sess, nil
}

// await forwards the pending event to onPending and blocks until the exchange
// resolves and the callback has returned. The exchange watches its own submit
// context, so it always ends.
func await(h *workflow.Handle, onPending domain.PendingFunc) workflow.Result {
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for ev := range h.Pending() {
			if onPending != nil {
				onPending(ev, h.Cancel)
			}
		}
	}()
	r := h.Wait(context.Background())
	<-forwarded
	log.WithFields(logrus.Fields{
		"kind":  h.Kind(),
		"uuid":  r.UUID,
		"state": r.State,
	}).Debug("Exchange resolved")
	return r
}

// Compile-time assertion that Service implements domain.SignerService.
var _ domain.SignerService = (*Service)(nil)
