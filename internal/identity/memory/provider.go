// Package memory implements an in-process identity provider for offline use
// and tests. Accounts live only as long as the process.
package memory

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/mmcdole/marquee/internal/domain"
	"github.com/mmcdole/marquee/internal/notify"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// Account seeds a provider with an existing user
type Account struct {
	Email       string
	Password    string
	DisplayName string
}

type account struct {
	id          string
	email       string
	displayName string
	hash        []byte
}

func (a *account) session() *domain.Session {
	return &domain.Session{
		ID:          a.id,
		Email:       domain.StringPtr(a.email),
		DisplayName: domain.StringPtr(a.displayName),
	}
}

// Provider is an in-memory domain.IdentityProvider backed by bcrypt hashes
type Provider struct {
	cost   int
	logger *slog.Logger
	subs   *notify.Broadcaster[domain.Notification]

	mu       sync.Mutex
	accounts map[string]*account // keyed by lowercased email
	current  *account
}

var _ domain.IdentityProvider = (*Provider)(nil)

// NewProvider creates a provider holding the given accounts.
// cost is the bcrypt cost; values outside bcrypt's range use the default.
func NewProvider(seed []Account, cost int, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	p := &Provider{
		cost:     cost,
		logger:   logger,
		subs:     notify.New[domain.Notification](),
		accounts: make(map[string]*account),
	}
	for _, a := range seed {
		if _, err := p.create(a.Email, a.Password, a.DisplayName); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// create validates and stores a new account. Caller must not hold p.mu.
func (p *Provider) create(email, password, displayName string) (*account, error) {
	key := normalizeEmail(email)
	if key == "" || !strings.Contains(key, "@") {
		return nil, domain.NewAuthError(domain.AuthInvalidCredentials, "INVALID_EMAIL", nil)
	}
	if len(password) < minPasswordLength {
		return nil, domain.NewAuthError(domain.AuthWeakPassword, "WEAK_PASSWORD", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return nil, domain.NewAuthError(domain.AuthUnknown, "", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.accounts[key]; ok {
		return nil, domain.NewAuthError(domain.AuthEmailAlreadyInUse, "EMAIL_EXISTS", nil)
	}
	a := &account{
		id:          uuid.NewString(),
		email:       strings.TrimSpace(email),
		displayName: strings.TrimSpace(displayName),
		hash:        hash,
	}
	p.accounts[key] = a
	return a, nil
}

// Subscribe registers fn; the current state is delivered first
func (p *Provider) Subscribe(fn func(domain.Notification)) (unsubscribe func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subs.Subscribe(fn, p.notificationLocked())
}

func (p *Provider) notificationLocked() domain.Notification {
	if p.current == nil {
		return domain.Notification{}
	}
	return domain.Notification{Session: p.current.session()}
}

func (p *Provider) signIn(a *account) *domain.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != a {
		p.current = a
		p.subs.Publish(p.notificationLocked())
	}
	return a.session()
}

// SignInWithPassword checks the password against the stored hash
func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewAuthError(domain.AuthNetworkUnavailable, "", err)
	}

	p.mu.Lock()
	a, ok := p.accounts[normalizeEmail(email)]
	p.mu.Unlock()
	if !ok {
		return nil, domain.NewAuthError(domain.AuthUserNotFound, "EMAIL_NOT_FOUND", nil)
	}

	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, domain.NewAuthError(domain.AuthInvalidCredentials, "INVALID_PASSWORD", nil)
		}
		return nil, domain.NewAuthError(domain.AuthUnknown, "", err)
	}

	p.logger.Info("signed in", "uid", a.id)
	return p.signIn(a), nil
}

// SignUpWithPassword creates an account and signs it in
func (p *Provider) SignUpWithPassword(ctx context.Context, email, password, displayName string) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewAuthError(domain.AuthNetworkUnavailable, "", err)
	}

	a, err := p.create(email, password, displayName)
	if err != nil {
		return nil, err
	}
	p.logger.Info("registered", "uid", a.id)
	return p.signIn(a), nil
}

// SignOut clears the current user
func (p *Provider) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return domain.NewAuthError(domain.AuthNetworkUnavailable, "", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		p.current = nil
		p.subs.Publish(domain.Notification{})
	}
	return nil
}

// SendPasswordReset only checks that the account exists; nothing is sent
func (p *Provider) SendPasswordReset(ctx context.Context, email string) error {
	p.mu.Lock()
	_, ok := p.accounts[normalizeEmail(email)]
	p.mu.Unlock()
	if !ok {
		return domain.NewAuthError(domain.AuthUserNotFound, "EMAIL_NOT_FOUND", nil)
	}
	p.logger.Info("password reset requested", "email", email)
	return nil
}

// Close drops all subscribers
func (p *Provider) Close() error {
	p.subs.Close()
	return nil
}
