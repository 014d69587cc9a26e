package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mmcdole/marquee/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := NewProvider([]Account{{Email: "a@b.com", Password: "secret1", DisplayName: "Alice"}}, bcrypt.MinCost, nil)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestSignIn(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	s, err := p.SignInWithPassword(ctx, "A@B.com ", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "Alice", s.Name())

	_, err = p.SignInWithPassword(ctx, "a@b.com", "wrong-password")
	assert.Equal(t, domain.AuthInvalidCredentials, domain.AuthErrorKindOf(err))

	_, err = p.SignInWithPassword(ctx, "who@b.com", "secret1")
	assert.Equal(t, domain.AuthUserNotFound, domain.AuthErrorKindOf(err))
}

func TestSignUp(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	_, err := p.SignUpWithPassword(ctx, "a@b.com", "secret1", "")
	assert.Equal(t, domain.AuthEmailAlreadyInUse, domain.AuthErrorKindOf(err))

	_, err = p.SignUpWithPassword(ctx, "c@d.com", "123", "")
	assert.Equal(t, domain.AuthWeakPassword, domain.AuthErrorKindOf(err))

	_, err = p.SignUpWithPassword(ctx, "not-an-email", "secret1", "")
	assert.Equal(t, domain.AuthInvalidCredentials, domain.AuthErrorKindOf(err))

	s, err := p.SignUpWithPassword(ctx, "c@d.com", "secret1", "Carol")
	require.NoError(t, err)
	assert.Equal(t, "Carol", s.Name())

	again, err := p.SignInWithPassword(ctx, "c@d.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, s.ID, again.ID)
}

func TestSubscribe_DeliversCurrentThenChanges(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	var mu sync.Mutex
	var got []domain.Notification
	unsub := p.Subscribe(func(n domain.Notification) {
		mu.Lock()
		got = append(got, n)
		mu.Unlock()
	})
	defer unsub()

	_, err := p.SignInWithPassword(ctx, "a@b.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, p.SignOut(ctx))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Nil(t, got[0].Session)
	require.NotNil(t, got[1].Session)
	assert.Nil(t, got[2].Session)
}

func TestSignOut_CancelledContext(t *testing.T) {
	p := newTestProvider(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.SignOut(ctx)
	assert.Equal(t, domain.AuthNetworkUnavailable, domain.AuthErrorKindOf(err))
}

func TestSendPasswordReset(t *testing.T) {
	p := newTestProvider(t)
	assert.NoError(t, p.SendPasswordReset(context.Background(), "a@b.com"))
	assert.Equal(t, domain.AuthUserNotFound, domain.AuthErrorKindOf(p.SendPasswordReset(context.Background(), "x@y.com")))
}
