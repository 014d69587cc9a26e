package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mmcdole/marquee/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider delivers notifications synchronously when the test calls emit
type stubProvider struct {
	mu      sync.Mutex
	subs    []*stubSub
	current *domain.Session

	// deliverInitial makes Subscribe call fn with the current state before returning
	deliverInitial bool

	signInErr  error
	signOutErr error
	signInGate chan struct{}

	active    atomic.Int32
	maxActive atomic.Int32
}

type stubSub struct {
	fn     func(domain.Notification)
	active atomic.Bool
}

func (p *stubProvider) Subscribe(fn func(domain.Notification)) func() {
	sub := &stubSub{fn: fn}
	sub.active.Store(true)

	p.mu.Lock()
	p.subs = append(p.subs, sub)
	current := p.current
	p.mu.Unlock()

	if p.deliverInitial {
		fn(domain.Notification{Session: current})
	}
	return func() { sub.active.Store(false) }
}

func (p *stubProvider) emit(n domain.Notification) {
	p.mu.Lock()
	subs := append([]*stubSub(nil), p.subs...)
	p.mu.Unlock()

	for _, sub := range subs {
		if sub.active.Load() {
			sub.fn(n)
		}
	}
}

func (p *stubProvider) enter() func() {
	n := p.active.Add(1)
	for {
		max := p.maxActive.Load()
		if n <= max || p.maxActive.CompareAndSwap(max, n) {
			break
		}
	}
	return func() { p.active.Add(-1) }
}

func (p *stubProvider) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	defer p.enter()()
	if p.signInGate != nil {
		<-p.signInGate
	}
	if p.signInErr != nil {
		return nil, p.signInErr
	}
	s := &domain.Session{ID: "u1", Email: domain.StringPtr(email)}
	p.mu.Lock()
	p.current = s
	p.mu.Unlock()
	return s, nil
}

func (p *stubProvider) SignUpWithPassword(ctx context.Context, email, password, displayName string) (*domain.Session, error) {
	defer p.enter()()
	s := &domain.Session{ID: "u2", Email: domain.StringPtr(email), DisplayName: domain.StringPtr(displayName)}
	p.mu.Lock()
	p.current = s
	p.mu.Unlock()
	return s, nil
}

func (p *stubProvider) SignOut(ctx context.Context) error {
	defer p.enter()()
	if p.signOutErr != nil {
		return p.signOutErr
	}
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
	return nil
}

func (p *stubProvider) SendPasswordReset(ctx context.Context, email string) error {
	return nil
}

// countingStore is an in-memory SessionStore that counts writes per key
type countingStore struct {
	mu      sync.Mutex
	data    map[string]string
	writes  map[string]int
	failGet error
	failSet error
}

func newCountingStore() *countingStore {
	return &countingStore{data: make(map[string]string), writes: make(map[string]int)}
}

func (s *countingStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet != nil {
		return "", false, &domain.IOError{Op: "get", Key: key, Err: s.failGet}
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *countingStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes[key]++
	if s.failSet != nil {
		return &domain.IOError{Op: "set", Key: key, Err: s.failSet}
	}
	s.data[key] = value
	return nil
}

func (s *countingStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes[key]++
	delete(s.data, key)
	return nil
}

func (s *countingStore) persistedSession(t *testing.T) *domain.Session {
	t.Helper()
	raw, ok, err := s.Get(domain.KeySessionSnapshot)
	require.NoError(t, err)
	if !ok {
		return nil
	}
	var session domain.Session
	require.NoError(t, json.Unmarshal([]byte(raw), &session))
	return &session
}

func (s *countingStore) writeCount(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes[key]
}

func u(id string) *domain.Session {
	return &domain.Session{ID: id, Email: domain.StringPtr(id + "@example.com")}
}

func newStarted(t *testing.T, provider *stubProvider, store *countingStore) *Synchronizer {
	t.Helper()
	s := New(provider, store, nil)
	require.NoError(t, s.Start())
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStart_RestoringUntilFirstNotification(t *testing.T) {
	store := newCountingStore()
	data, _ := json.Marshal(u("stale"))
	store.data[domain.KeySessionSnapshot] = string(data)
	store.data[domain.KeyOnboardingFlag] = "true"

	provider := &stubProvider{}
	s := newStarted(t, provider, store)

	snap := s.Snapshot()
	assert.Equal(t, domain.SyncRestoring, snap.State)
	assert.True(t, snap.Onboarded)
	require.NotNil(t, snap.Session)
	assert.Equal(t, "stale", snap.Session.ID)

	// Provider is authoritative over the restored copy
	provider.emit(domain.Notification{})
	snap = s.Snapshot()
	assert.Equal(t, domain.SyncSynced, snap.State)
	assert.Nil(t, snap.Session)
	assert.Nil(t, store.persistedSession(t))
}

func TestStart_FirstNotificationWithSessionPersists(t *testing.T) {
	store := newCountingStore()
	provider := &stubProvider{current: u("u1"), deliverInitial: true}
	s := newStarted(t, provider, store)

	snap := s.Snapshot()
	assert.Equal(t, domain.SyncSynced, snap.State)
	require.NotNil(t, snap.Session)
	assert.Equal(t, "u1", snap.Session.ID)
	assert.True(t, u("u1").Equal(*store.persistedSession(t)))
}

func TestStart_StoreFailuresAreSwallowed(t *testing.T) {
	store := newCountingStore()
	store.failGet = errors.New("disk gone")
	s := newStarted(t, &stubProvider{}, store)

	snap := s.Snapshot()
	assert.Equal(t, domain.SyncRestoring, snap.State)
	assert.Nil(t, snap.Session)
	assert.False(t, snap.Onboarded)
}

func TestStart_Twice(t *testing.T) {
	s := newStarted(t, &stubProvider{}, newCountingStore())
	assert.ErrorIs(t, s.Start(), ErrAlreadyStarted)
}

func TestStart_ProviderErrorResolvesToError(t *testing.T) {
	provider := &stubProvider{}
	s := newStarted(t, provider, newCountingStore())

	provider.emit(domain.Notification{Err: domain.NewAuthError(domain.AuthNetworkUnavailable, "", nil)})
	snap := s.Snapshot()
	assert.Equal(t, domain.SyncError, snap.State)
	assert.True(t, snap.State.Resolved())
	assert.Nil(t, snap.Session)
	assert.Equal(t, domain.AuthNetworkUnavailable, domain.AuthErrorKindOf(snap.Err))

	s.ClearError()
	snap = s.Snapshot()
	assert.Equal(t, domain.SyncSynced, snap.State)
	assert.NoError(t, snap.Err)
}

func TestNotifications_LastDeliveredWins(t *testing.T) {
	store := newCountingStore()
	provider := &stubProvider{}
	s := newStarted(t, provider, store)

	sequence := []*domain.Session{u("u1"), nil, u("u2"), u("u3"), nil, u("u4")}
	for _, next := range sequence {
		provider.emit(domain.Notification{Session: next})

		snap := s.Snapshot()
		assert.Equal(t, domain.SyncSynced, snap.State)
		if next == nil {
			assert.Nil(t, snap.Session)
			assert.Nil(t, store.persistedSession(t))
			continue
		}
		require.NotNil(t, snap.Session)
		assert.True(t, next.Equal(*snap.Session))
		assert.True(t, next.Equal(*store.persistedSession(t)))
	}
}

func TestNotifications_SteadyStateErrorKeepsSession(t *testing.T) {
	provider := &stubProvider{current: u("u1"), deliverInitial: true}
	s := newStarted(t, provider, newCountingStore())

	provider.emit(domain.Notification{Err: errors.New("token refresh failed")})

	snap := s.Snapshot()
	assert.Equal(t, domain.SyncSynced, snap.State)
	require.NotNil(t, snap.Session)
	assert.Equal(t, "u1", snap.Session.ID)
	assert.NoError(t, snap.Err)
}

func TestLogin_SetsSessionImmediatelyAndPersists(t *testing.T) {
	store := newCountingStore()
	provider := &stubProvider{}
	s := newStarted(t, provider, store)
	provider.emit(domain.Notification{})

	session, err := s.Login(context.Background(), "a@b.com", "secret1")
	require.NoError(t, err)

	want := domain.Session{ID: "u1", Email: domain.StringPtr("a@b.com")}
	assert.True(t, want.Equal(*session))

	snap := s.Snapshot()
	assert.Equal(t, domain.SyncSynced, snap.State)
	require.NotNil(t, snap.Session)
	assert.True(t, want.Equal(*snap.Session))
	assert.True(t, want.Equal(*store.persistedSession(t)))
}

func TestLogin_FailureLeavesSessionUnchanged(t *testing.T) {
	store := newCountingStore()
	provider := &stubProvider{current: u("u0"), deliverInitial: true}
	s := newStarted(t, provider, store)
	writes := store.writeCount(domain.KeySessionSnapshot)

	provider.signInErr = domain.NewAuthError(domain.AuthInvalidCredentials, "INVALID_PASSWORD", nil)
	_, err := s.Login(context.Background(), "a@b.com", "wrong")
	assert.Equal(t, domain.AuthInvalidCredentials, domain.AuthErrorKindOf(err))

	snap := s.Snapshot()
	require.NotNil(t, snap.Session)
	assert.Equal(t, "u0", snap.Session.ID)
	assert.Equal(t, domain.AuthInvalidCredentials, domain.AuthErrorKindOf(snap.Err))
	assert.Equal(t, writes, store.writeCount(domain.KeySessionSnapshot))
}

func TestLogin_ProviderNativeErrorsAreWrapped(t *testing.T) {
	provider := &stubProvider{deliverInitial: true}
	s := newStarted(t, provider, newCountingStore())

	provider.signInErr = errors.New("auth/internal-error")
	_, err := s.Login(context.Background(), "a@b.com", "secret1")

	var authErr *domain.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, domain.AuthUnknown, authErr.Kind)
}

func TestLogin_PersistFailureStillSignsIn(t *testing.T) {
	store := newCountingStore()
	store.failSet = errors.New("read-only")
	s := newStarted(t, &stubProvider{deliverInitial: true}, store)

	_, err := s.Login(context.Background(), "a@b.com", "secret1")
	require.NoError(t, err)
	require.NotNil(t, s.Snapshot().Session)
	assert.Equal(t, "u1", s.Snapshot().Session.ID)
}

func TestRegister(t *testing.T) {
	store := newCountingStore()
	s := newStarted(t, &stubProvider{deliverInitial: true}, store)

	session, err := s.Register(context.Background(), "n@b.com", "secret1", "Neo")
	require.NoError(t, err)
	assert.Equal(t, "Neo", session.Name())
	assert.Equal(t, "u2", store.persistedSession(t).ID)
}

func TestLogout_ProviderFailureLeavesSessionUnchanged(t *testing.T) {
	store := newCountingStore()
	provider := &stubProvider{current: u("u1"), deliverInitial: true}
	s := newStarted(t, provider, store)

	provider.signOutErr = domain.NewAuthError(domain.AuthNetworkUnavailable, "", errors.New("offline"))
	err := s.Logout(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.AuthNetworkUnavailable, domain.AuthErrorKindOf(err))

	snap := s.Snapshot()
	require.NotNil(t, snap.Session)
	assert.Equal(t, "u1", snap.Session.ID)
	assert.Equal(t, "u1", store.persistedSession(t).ID)
}

func TestLogout_ClearsSessionAndStore(t *testing.T) {
	store := newCountingStore()
	provider := &stubProvider{current: u("u1"), deliverInitial: true}
	s := newStarted(t, provider, store)

	require.NoError(t, s.Logout(context.Background()))
	assert.Nil(t, s.Snapshot().Session)
	assert.Nil(t, store.persistedSession(t))
}

func TestLogout_StaleQueuedNotificationCannotResurrect(t *testing.T) {
	store := newCountingStore()
	provider := &stubProvider{current: u("u1"), deliverInitial: true}
	s := newStarted(t, provider, store)

	provider.mu.Lock()
	stale := provider.subs[0]
	provider.mu.Unlock()

	require.NoError(t, s.Logout(context.Background()))

	// A notification queued on the old subscription before the logout completed
	stale.fn(domain.Notification{Session: u("u1")})

	assert.Nil(t, s.Snapshot().Session)
	assert.Nil(t, store.persistedSession(t))

	// The new subscription still works
	provider.emit(domain.Notification{Session: u("u9")})
	require.NotNil(t, s.Snapshot().Session)
	assert.Equal(t, "u9", s.Snapshot().Session.ID)
}

func TestAuthMutations_AreSerialized(t *testing.T) {
	provider := &stubProvider{deliverInitial: true, signInGate: make(chan struct{})}
	s := newStarted(t, provider, newCountingStore())

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Login(context.Background(), "a@b.com", "secret1")
			assert.NoError(t, err)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, s.Logout(context.Background()))
	}()

	time.Sleep(20 * time.Millisecond)
	close(provider.signInGate)
	wg.Wait()

	assert.Equal(t, int32(1), provider.maxActive.Load())
}

func TestProviderErrorDuringOperationIsAttached(t *testing.T) {
	provider := &stubProvider{deliverInitial: true, signInGate: make(chan struct{})}
	s := newStarted(t, provider, newCountingStore())

	type result struct {
		session *domain.Session
		err     error
	}
	done := make(chan result, 1)
	go func() {
		session, err := s.Login(context.Background(), "a@b.com", "secret1")
		done <- result{session, err}
	}()

	assert.Eventually(t, func() bool { return provider.active.Load() == 1 }, time.Second, time.Millisecond)
	provider.emit(domain.Notification{Err: domain.NewAuthError(domain.AuthRateLimited, "", nil)})
	close(provider.signInGate)

	res := <-done
	require.NotNil(t, res.session, "the login itself succeeded")
	require.Error(t, res.err)
	assert.True(t, domain.IsOperationNotice(res.err))
	assert.Equal(t, domain.AuthRateLimited, domain.AuthErrorKindOf(res.err))

	snap := s.Snapshot()
	require.NotNil(t, snap.Session)
	assert.Equal(t, domain.AuthRateLimited, domain.AuthErrorKindOf(snap.Err))

	// Nothing pending any more: the next provider error is only recorded
	_, err := s.Login(context.Background(), "a@b.com", "secret1")
	assert.NoError(t, err)
}

func TestWaitResolved_ProviderOverridesPersistedCopy(t *testing.T) {
	store := newCountingStore()
	data, _ := json.Marshal(u("stale"))
	store.data[domain.KeySessionSnapshot] = string(data)

	provider := &stubProvider{}
	s := newStarted(t, provider, store)
	require.NotNil(t, s.Snapshot().Session, "restored copy is visible while restoring")

	done := make(chan domain.SessionSnapshot, 1)
	go func() {
		snap, err := s.WaitResolved(context.Background())
		assert.NoError(t, err)
		done <- snap
	}()

	select {
	case <-done:
		t.Fatal("returned before the provider answered")
	case <-time.After(20 * time.Millisecond):
	}

	provider.emit(domain.Notification{})

	select {
	case snap := <-done:
		assert.Equal(t, domain.SyncSynced, snap.State)
		assert.Nil(t, snap.Session)
	case <-time.After(time.Second):
		t.Fatal("WaitResolved did not return")
	}
}

func TestWaitResolved_AlreadyResolved(t *testing.T) {
	provider := &stubProvider{current: u("u1"), deliverInitial: true}
	s := newStarted(t, provider, newCountingStore())

	snap, err := s.WaitResolved(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap.Session)
	assert.Equal(t, "u1", snap.Session.ID)
}

func TestWaitResolved_Timeout(t *testing.T) {
	s := newStarted(t, &stubProvider{}, newCountingStore())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	snap, err := s.WaitResolved(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, domain.SyncRestoring, snap.State)
}

func TestCompleteOnboarding_Idempotent(t *testing.T) {
	store := newCountingStore()
	s := newStarted(t, &stubProvider{}, store)
	assert.False(t, s.Snapshot().Onboarded)

	s.CompleteOnboarding()
	s.CompleteOnboarding()
	s.CompleteOnboarding()

	assert.True(t, s.Snapshot().Onboarded)
	assert.Equal(t, 1, store.writeCount(domain.KeyOnboardingFlag))
	v, ok, _ := store.Get(domain.KeyOnboardingFlag)
	assert.True(t, ok)
	assert.Equal(t, "true", v)
}

func TestCompleteOnboarding_PersistFailureKeepsFlag(t *testing.T) {
	store := newCountingStore()
	store.failSet = errors.New("read-only")
	s := newStarted(t, &stubProvider{}, store)

	s.CompleteOnboarding()
	s.CompleteOnboarding()
	assert.True(t, s.Snapshot().Onboarded)
	assert.Equal(t, 1, store.writeCount(domain.KeyOnboardingFlag))
}

func TestSubscribe_ObserversSeeEveryChange(t *testing.T) {
	provider := &stubProvider{}
	s := newStarted(t, provider, newCountingStore())

	var mu sync.Mutex
	var states []domain.SyncState
	unsub := s.Subscribe(domain.SessionObserverFunc(func(snap domain.SessionSnapshot) {
		mu.Lock()
		states = append(states, snap.State)
		mu.Unlock()
	}))
	defer unsub()

	provider.emit(domain.Notification{})
	s.CompleteOnboarding()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) == 3
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []domain.SyncState{domain.SyncRestoring, domain.SyncSynced, domain.SyncSynced}, states)
}

func TestClose(t *testing.T) {
	provider := &stubProvider{}
	s := New(provider, newCountingStore(), nil)
	require.NoError(t, s.Start())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	provider.emit(domain.Notification{Session: u("u1")})
	assert.Equal(t, domain.SyncRestoring, s.Snapshot().State)

	_, err := s.Login(context.Background(), "a@b.com", "secret1")
	assert.ErrorIs(t, err, domain.ErrClosed)
	assert.ErrorIs(t, s.Start(), domain.ErrClosed)
}
