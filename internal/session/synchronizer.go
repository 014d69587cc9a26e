// Package session keeps the signed-in user consistent between the local
// session store and the identity provider, and publishes it reactively.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mmcdole/marquee/internal/domain"
	"github.com/mmcdole/marquee/internal/notify"
)

// ErrAlreadyStarted is returned by a second call to Start
var ErrAlreadyStarted = errors.New("synchronizer already started")

// Synchronizer is the single owner of the session state.
//
// The provider's notification stream is the only input that resolves
// Restoring. Explicit operations (Login, Register, Logout) commit their
// result directly and then resubscribe; notifications queued on the old
// subscription are dropped, so a stale notification cannot undo a commit.
type Synchronizer struct {
	provider domain.IdentityProvider
	store    domain.SessionStore
	logger   *slog.Logger

	observers *notify.Broadcaster[domain.SessionSnapshot]

	// opMu serializes auth mutations; a second caller waits for the first
	opMu sync.Mutex

	mu          sync.Mutex
	state       domain.SyncState
	session     *domain.Session
	onboarded   bool
	err         error
	pending     *pendingOp
	gen         uint64 // current provider subscription generation
	unsubscribe func()
	started     bool
	closed      bool
}

// pendingOp collects provider errors that arrive while an explicit operation runs
type pendingOp struct {
	name string
	err  error
}

// notice returns the collected provider error for the operation's caller
func (op *pendingOp) notice() error {
	if op.err == nil {
		return nil
	}
	return &domain.OperationNotice{Op: op.name, Err: op.err}
}

// New creates a synchronizer. Call Start to restore and subscribe.
func New(provider domain.IdentityProvider, store domain.SessionStore, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{
		provider:  provider,
		store:     store,
		logger:    logger,
		observers: notify.New[domain.SessionSnapshot](),
		state:     domain.SyncInitializing,
	}
}

// Start restores the persisted session and onboarding flag, then subscribes
// to the provider. The state stays Restoring until the first notification.
func (s *Synchronizer) Start() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrClosed
	}
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true

	s.session = s.readSession()
	s.onboarded = s.readOnboarded()
	s.setStateLocked(domain.SyncRestoring)
	s.publishLocked()

	s.gen++
	gen := s.gen
	s.mu.Unlock()

	s.subscribe(gen)
	return nil
}

// subscribe registers a provider subscription for gen. If gen was superseded
// before the provider returned, the new subscription is dropped.
func (s *Synchronizer) subscribe(gen uint64) {
	unsub := s.provider.Subscribe(func(n domain.Notification) {
		s.handleNotification(gen, n)
	})

	s.mu.Lock()
	if s.closed || s.gen != gen {
		s.mu.Unlock()
		unsub()
		return
	}
	s.unsubscribe = unsub
	s.mu.Unlock()
}

// resubscribeLocked starts a new subscription generation. Caller holds s.mu;
// the returned func must be called after releasing it.
func (s *Synchronizer) resubscribeLocked() func() {
	s.gen++
	gen := s.gen
	old := s.unsubscribe
	s.unsubscribe = nil

	return func() {
		if old != nil {
			old()
		}
		s.subscribe(gen)
	}
}

func (s *Synchronizer) handleNotification(gen uint64, n domain.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.gen {
		s.logger.Debug("dropping stale session notification", "gen", gen, "current", s.gen)
		return
	}

	if n.Err != nil {
		s.handleProviderErrorLocked(n.Err)
		return
	}

	if !s.state.Resolved() {
		s.logger.Info("session restored", "authenticated", n.Session != nil)
	}
	if s.state != domain.SyncSynced {
		s.err = nil
	}
	s.session = n.Session
	s.setStateLocked(domain.SyncSynced)
	s.persistSessionLocked()
	s.publishLocked()
}

// handleProviderErrorLocked applies a transport/verification error from the
// stream. While restoring it resolves to Error; afterwards it never changes
// the session.
func (s *Synchronizer) handleProviderErrorLocked(err error) {
	err = asAuthError(err)

	if !s.state.Resolved() {
		s.logger.Warn("session restore failed", "error", err)
		s.session = nil
		s.err = err
		s.setStateLocked(domain.SyncError)
		s.publishLocked()
		return
	}

	if s.pending != nil {
		s.logger.Warn("provider error during operation", "op", s.pending.name, "error", err)
		s.pending.err = err
		return
	}
	s.logger.Warn("provider error", "error", err)
}

// Login signs in with email and password. On success the session is set
// and persisted immediately; on failure it is left unchanged. A provider
// error reported while the request ran comes back as a *domain.OperationNotice
// next to the session.
func (s *Synchronizer) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	return s.signIn(ctx, "login", func(ctx context.Context) (*domain.Session, error) {
		return s.provider.SignInWithPassword(ctx, email, password)
	})
}

// Register creates an account and signs it in, with the same semantics as Login
func (s *Synchronizer) Register(ctx context.Context, email, password, displayName string) (*domain.Session, error) {
	return s.signIn(ctx, "register", func(ctx context.Context) (*domain.Session, error) {
		return s.provider.SignUpWithPassword(ctx, email, password, displayName)
	})
}

func (s *Synchronizer) signIn(ctx context.Context, name string, call func(context.Context) (*domain.Session, error)) (*domain.Session, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.beginOp(name); err != nil {
		return nil, err
	}

	session, err := call(ctx)
	if err == nil && session == nil {
		err = domain.NewAuthError(domain.AuthUnknown, "", errors.New("provider returned no session"))
	}

	s.mu.Lock()
	op := s.endOpLocked()
	if err != nil {
		err = asAuthError(err)
		s.logger.Warn(name+" failed", "kind", domain.AuthErrorKindOf(err).String(), "error", err)
		s.err = err
		s.publishLocked()
		s.mu.Unlock()
		return nil, err
	}

	s.session = session
	s.err = op.err
	s.setStateLocked(domain.SyncSynced)
	s.persistSessionLocked()
	s.publishLocked()
	resubscribe := s.resubscribeLocked()
	s.mu.Unlock()

	resubscribe()
	s.logger.Info(name+" succeeded", "uid", session.ID)
	return session, op.notice()
}

// Logout signs out at the provider first. Only when that succeeds are the
// session and its persisted copy cleared; on failure nothing changes.
// Provider errors seen meanwhile are returned as a *domain.OperationNotice.
func (s *Synchronizer) Logout(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.beginOp("logout"); err != nil {
		return err
	}

	err := s.provider.SignOut(ctx)

	s.mu.Lock()
	op := s.endOpLocked()
	if err != nil {
		err = asAuthError(err)
		s.logger.Warn("logout failed", "kind", domain.AuthErrorKindOf(err).String(), "error", err)
		s.err = err
		s.publishLocked()
		s.mu.Unlock()
		return err
	}

	s.session = nil
	s.err = op.err
	s.setStateLocked(domain.SyncSynced)
	s.persistSessionLocked()
	s.publishLocked()
	resubscribe := s.resubscribeLocked()
	s.mu.Unlock()

	resubscribe()
	s.logger.Info("logout succeeded")
	return op.notice()
}

// SendPasswordReset asks the provider to send a reset email. Session state is untouched.
func (s *Synchronizer) SendPasswordReset(ctx context.Context, email string) error {
	if err := s.provider.SendPasswordReset(ctx, email); err != nil {
		err = asAuthError(err)
		s.logger.Warn("password reset failed", "kind", domain.AuthErrorKindOf(err).String())
		return err
	}
	return nil
}

func (s *Synchronizer) beginOp(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrClosed
	}
	s.pending = &pendingOp{name: name}
	return nil
}

func (s *Synchronizer) endOpLocked() *pendingOp {
	op := s.pending
	s.pending = nil
	if op == nil {
		op = &pendingOp{}
	}
	return op
}

// CompleteOnboarding sets the onboarding flag. Only the first call writes.
func (s *Synchronizer) CompleteOnboarding() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.onboarded {
		return
	}
	s.onboarded = true
	if err := s.store.Set(domain.KeyOnboardingFlag, "true"); err != nil {
		s.logger.Warn("failed to persist onboarding flag", "error", err)
	}
	s.publishLocked()
}

// ClearError dismisses the last surfaced error. An Error state becomes
// Synced with no session.
func (s *Synchronizer) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err == nil && s.state != domain.SyncError {
		return
	}
	s.err = nil
	if s.state == domain.SyncError {
		s.setStateLocked(domain.SyncSynced)
	}
	s.publishLocked()
}

// Snapshot returns the current state
func (s *Synchronizer) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// WaitResolved blocks until the provider has resolved the session and
// returns that snapshot. Before then the session is only the persisted copy.
func (s *Synchronizer) WaitResolved(ctx context.Context) (domain.SessionSnapshot, error) {
	resolved := make(chan domain.SessionSnapshot, 1)
	unsubscribe := s.Subscribe(domain.SessionObserverFunc(func(snap domain.SessionSnapshot) {
		if !snap.State.Resolved() {
			return
		}
		select {
		case resolved <- snap:
		default:
		}
	}))
	defer unsubscribe()

	select {
	case snap := <-resolved:
		return snap, nil
	case <-ctx.Done():
		return s.Snapshot(), fmt.Errorf("waiting for session restore: %w", ctx.Err())
	}
}

// Subscribe delivers the current snapshot and then every change, in order,
// on a separate goroutine. The returned func unsubscribes.
func (s *Synchronizer) Subscribe(observer domain.SessionObserver) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.observers.Subscribe(observer.OnSessionChange, s.snapshotLocked())
}

// Close unsubscribes from the provider and drops all observers. Idempotent.
func (s *Synchronizer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.gen++
	unsub := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	s.observers.Close()
	return nil
}

func (s *Synchronizer) snapshotLocked() domain.SessionSnapshot {
	return domain.SessionSnapshot{
		State:     s.state,
		Session:   s.session,
		Onboarded: s.onboarded,
		Err:       s.err,
	}
}

func (s *Synchronizer) publishLocked() {
	s.observers.Publish(s.snapshotLocked())
}

func (s *Synchronizer) setStateLocked(state domain.SyncState) {
	if s.state != state {
		s.logger.Debug("session state", "from", s.state.String(), "to", state.String())
		s.state = state
	}
}

// persistSessionLocked mirrors s.session into the store. Failures are logged only.
func (s *Synchronizer) persistSessionLocked() {
	if s.session == nil {
		if err := s.store.Remove(domain.KeySessionSnapshot); err != nil {
			s.logger.Warn("failed to clear persisted session", "error", err)
		}
		return
	}

	data, err := json.Marshal(s.session)
	if err != nil {
		s.logger.Error("failed to encode session", "error", err)
		return
	}
	if err := s.store.Set(domain.KeySessionSnapshot, string(data)); err != nil {
		s.logger.Warn("failed to persist session", "error", err)
	}
}

// readSession loads the persisted session. Any failure is treated as absent.
func (s *Synchronizer) readSession() *domain.Session {
	raw, ok, err := s.store.Get(domain.KeySessionSnapshot)
	if err != nil {
		s.logger.Warn("failed to read persisted session", "error", err)
		return nil
	}
	if !ok {
		return nil
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil || session.ID == "" {
		s.logger.Warn("discarding unreadable persisted session", "error", err)
		return nil
	}
	return &session
}

func (s *Synchronizer) readOnboarded() bool {
	raw, ok, err := s.store.Get(domain.KeyOnboardingFlag)
	if err != nil {
		s.logger.Warn("failed to read onboarding flag", "error", err)
		return false
	}
	return ok && raw == "true"
}

// asAuthError makes sure callers only ever see domain.AuthError kinds
func asAuthError(err error) error {
	var authErr *domain.AuthError
	if errors.As(err, &authErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.NewAuthError(domain.AuthNetworkUnavailable, "", err)
	}
	return domain.NewAuthError(domain.AuthUnknown, "", fmt.Errorf("identity provider: %w", err))
}
