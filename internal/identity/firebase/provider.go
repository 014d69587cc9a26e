// Package firebase implements domain.IdentityProvider on the Firebase
// Authentication REST API (Identity Toolkit + Secure Token).
package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mmcdole/marquee/internal/domain"
	"github.com/mmcdole/marquee/internal/notify"
)

const (
	defaultAuthBaseURL  = "https://identitytoolkit.googleapis.com/v1"
	defaultTokenBaseURL = "https://securetoken.googleapis.com/v1"
	requestTimeout      = 30 * time.Second

	// Tokens are refreshed this long before they expire
	refreshLeeway = 5 * time.Minute
	// Delay before retrying a refresh that failed for a transient reason
	refreshRetry = time.Minute

	credentialsKey = "firebase-credentials"
)

// Options configures a Provider. Zero values fall back to defaults.
type Options struct {
	AuthBaseURL  string
	TokenBaseURL string
	HTTPClient   *http.Client
	Clock        clockwork.Clock
	// Store keeps the refresh token across restarts. nil keeps it in memory only.
	Store domain.SessionStore
}

// credentials is the signed-in state, persisted as JSON
type credentials struct {
	User         domain.Session `json:"user"`
	IDToken      string         `json:"id_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresAt    time.Time      `json:"expires_at"`
}

// Provider is a Firebase email/password identity provider.
// It restores persisted credentials on creation and keeps the ID token
// fresh in the background until Close.
type Provider struct {
	apiKey       string
	authBaseURL  string
	tokenBaseURL string
	httpClient   *http.Client
	clock        clockwork.Clock
	store        domain.SessionStore
	logger       *slog.Logger

	subs *notify.Broadcaster[domain.Notification]

	mu          sync.Mutex
	creds       *credentials
	nextRefresh time.Time

	reschedule chan struct{}
	stopCh     chan struct{}
	stopOnce   sync.Once
	done       chan struct{}
}

var _ domain.IdentityProvider = (*Provider)(nil)

// NewProvider creates a provider and starts its token refresh loop
func NewProvider(apiKey string, opts Options, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	authBaseURL := strings.TrimRight(opts.AuthBaseURL, "/")
	if authBaseURL == "" {
		authBaseURL = defaultAuthBaseURL
	}
	tokenBaseURL := strings.TrimRight(opts.TokenBaseURL, "/")
	if tokenBaseURL == "" {
		tokenBaseURL = defaultTokenBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	p := &Provider{
		apiKey:       apiKey,
		authBaseURL:  authBaseURL,
		tokenBaseURL: tokenBaseURL,
		httpClient:   httpClient,
		clock:        clock,
		store:        opts.Store,
		logger:       logger,
		subs:         notify.New[domain.Notification](),
		reschedule:   make(chan struct{}, 1),
		stopCh:       make(chan struct{}),
		done:         make(chan struct{}),
	}

	if creds := p.loadCredentials(); creds != nil {
		p.creds = creds
		p.nextRefresh = creds.ExpiresAt.Add(-refreshLeeway)
		logger.Info("restored identity credentials", "uid", creds.User.ID, "expires", creds.ExpiresAt)
	}

	go p.refreshLoop()
	return p
}

// Subscribe registers fn for session notifications. The current state is
// delivered first, asynchronously, followed by every change in order.
func (p *Provider) Subscribe(fn func(domain.Notification)) (unsubscribe func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subs.Subscribe(fn, domain.Notification{Session: p.currentLocked()})
}

func (p *Provider) currentLocked() *domain.Session {
	if p.creds == nil {
		return nil
	}
	s := p.creds.User
	return &s
}

// CurrentSession returns the signed-in user, or nil
func (p *Provider) CurrentSession() *domain.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentLocked()
}

// SignInWithPassword verifies email/password and signs the user in
func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	var resp accountResponse
	req := passwordRequest{Email: email, Password: password, ReturnSecureToken: true}
	if err := p.postJSON(ctx, p.authURL("accounts:signInWithPassword"), req, &resp); err != nil {
		return nil, err
	}
	creds := p.credentialsFrom(&resp, nil)
	p.setCredentials(creds)
	p.logger.Info("signed in", "uid", creds.User.ID)

	s := creds.User
	return &s, nil
}

// SignUpWithPassword creates an account, signs it in and sets its display name.
// A failed display name update is logged and the account is still signed in.
func (p *Provider) SignUpWithPassword(ctx context.Context, email, password, displayName string) (*domain.Session, error) {
	var resp accountResponse
	req := passwordRequest{Email: email, Password: password, ReturnSecureToken: true}
	if err := p.postJSON(ctx, p.authURL("accounts:signUp"), req, &resp); err != nil {
		return nil, err
	}
	creds := p.credentialsFrom(&resp, nil)

	if displayName = strings.TrimSpace(displayName); displayName != "" {
		var profile accountResponse
		update := profileRequest{IDToken: creds.IDToken, DisplayName: displayName, ReturnSecureToken: true}
		if err := p.postJSON(ctx, p.authURL("accounts:update"), update, &profile); err != nil {
			p.logger.Warn("failed to set display name", "uid", creds.User.ID, "error", err)
		} else {
			creds = p.credentialsFrom(&profile, creds)
		}
	}

	p.setCredentials(creds)
	p.logger.Info("registered", "uid", creds.User.ID)

	s := creds.User
	return &s, nil
}

// SignOut forgets the stored credentials. The persisted copy is removed
// first; if that fails the user stays signed in.
func (p *Provider) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.store != nil {
		if err := p.store.Remove(credentialsKey); err != nil {
			p.logger.Error("failed to remove credentials", "error", err)
			return fmt.Errorf("sign out: %w", err)
		}
	}

	p.mu.Lock()
	had := p.creds != nil
	p.creds = nil
	p.nextRefresh = time.Time{}
	if had {
		p.subs.Publish(domain.Notification{})
	}
	p.mu.Unlock()

	p.signalReschedule()
	p.logger.Info("signed out")
	return nil
}

// SendPasswordReset asks the provider to email a password reset link
func (p *Provider) SendPasswordReset(ctx context.Context, email string) error {
	req := oobRequest{RequestType: "PASSWORD_RESET", Email: email}
	var resp struct {
		Email string `json:"email"`
	}
	if err := p.postJSON(ctx, p.authURL("accounts:sendOobCode"), req, &resp); err != nil {
		return err
	}
	p.logger.Info("password reset sent")
	return nil
}

// Close stops the refresh loop and drops all subscribers
func (p *Provider) Close() error {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
	<-p.done
	p.subs.Close()
	return nil
}

// credentialsFrom builds credentials from an account response. Fields the
// response omits are taken from prev.
func (p *Provider) credentialsFrom(resp *accountResponse, prev *credentials) *credentials {
	c := &credentials{}
	if prev != nil {
		*c = *prev
	}
	if resp.LocalID != "" {
		c.User.ID = resp.LocalID
	}
	if resp.Email != "" {
		c.User.Email = domain.StringPtr(resp.Email)
	}
	if resp.DisplayName != "" {
		c.User.DisplayName = domain.StringPtr(resp.DisplayName)
	}
	if resp.PhotoURL != "" {
		c.User.AvatarURL = domain.StringPtr(resp.PhotoURL)
	}
	if resp.IDToken != "" {
		c.IDToken = resp.IDToken
		c.ExpiresAt = p.expiry(resp.ExpiresIn)
	}
	if resp.RefreshToken != "" {
		c.RefreshToken = resp.RefreshToken
	}
	return c
}

func (p *Provider) expiry(expiresIn string) time.Time {
	secs, err := strconv.Atoi(expiresIn)
	if err != nil || secs <= 0 {
		secs = 3600
	}
	return p.clock.Now().Add(time.Duration(secs) * time.Second)
}

// setCredentials installs creds, persists them and notifies subscribers
// when the user changed.
func (p *Provider) setCredentials(creds *credentials) {
	p.saveCredentials(creds)

	p.mu.Lock()
	changed := p.creds == nil || !p.creds.User.Equal(creds.User)
	p.creds = creds
	p.nextRefresh = creds.ExpiresAt.Add(-refreshLeeway)
	if changed {
		p.subs.Publish(domain.Notification{Session: p.currentLocked()})
	}
	p.mu.Unlock()

	p.signalReschedule()
}

func (p *Provider) signalReschedule() {
	select {
	case p.reschedule <- struct{}{}:
	default:
	}
}

func (p *Provider) loadCredentials() *credentials {
	if p.store == nil {
		return nil
	}
	raw, ok, err := p.store.Get(credentialsKey)
	if err != nil {
		p.logger.Warn("failed to read credentials", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	var creds credentials
	if err := json.Unmarshal([]byte(raw), &creds); err != nil || creds.User.ID == "" || creds.RefreshToken == "" {
		p.logger.Warn("discarding unreadable credentials", "error", err)
		return nil
	}
	return &creds
}

func (p *Provider) saveCredentials(creds *credentials) {
	if p.store == nil {
		return
	}
	data, err := json.Marshal(creds)
	if err != nil {
		p.logger.Error("failed to encode credentials", "error", err)
		return
	}
	if err := p.store.Set(credentialsKey, string(data)); err != nil {
		p.logger.Warn("failed to persist credentials", "error", err)
	}
}

// refreshLoop refreshes the ID token shortly before it expires
func (p *Provider) refreshLoop() {
	defer close(p.done)

	for {
		p.mu.Lock()
		signedIn := p.creds != nil
		delay := p.nextRefresh.Sub(p.clock.Now())
		p.mu.Unlock()

		var timer clockwork.Timer
		var fire <-chan time.Time
		if signedIn {
			if delay < 0 {
				delay = 0
			}
			timer = p.clock.NewTimer(delay)
			fire = timer.Chan()
		}

		select {
		case <-fire:
			p.refresh()
		case <-p.reschedule:
		case <-p.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// refresh exchanges the refresh token for a new ID token. A revoked token
// signs the user out; any other failure is reported to subscribers and retried.
func (p *Provider) refresh() {
	p.mu.Lock()
	creds := p.creds
	p.mu.Unlock()
	if creds == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {creds.RefreshToken},
	}
	var resp tokenResponse
	err := p.post(ctx, p.tokenURL(), "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), &resp)

	p.mu.Lock()
	if p.creds != creds {
		// Signed out or signed in again meanwhile
		p.mu.Unlock()
		return
	}

	switch {
	case err == nil:
		next := *creds
		next.IDToken = resp.IDToken
		if resp.RefreshToken != "" {
			next.RefreshToken = resp.RefreshToken
		}
		next.ExpiresAt = p.expiry(resp.ExpiresIn)
		p.creds = &next
		p.nextRefresh = next.ExpiresAt.Add(-refreshLeeway)
		p.saveCredentials(&next)
		p.mu.Unlock()

		p.logger.Debug("refreshed id token", "uid", next.User.ID, "expires", next.ExpiresAt)

	case revoked(err):
		p.creds = nil
		p.nextRefresh = time.Time{}
		p.subs.Publish(domain.Notification{})
		p.mu.Unlock()

		p.logger.Warn("refresh token revoked, signing out", "uid", creds.User.ID, "error", err)
		if p.store != nil {
			if rmErr := p.store.Remove(credentialsKey); rmErr != nil {
				p.logger.Warn("failed to remove credentials", "error", rmErr)
			}
		}

	default:
		p.nextRefresh = p.clock.Now().Add(refreshRetry)
		p.subs.Publish(domain.Notification{Session: p.currentLocked(), Err: err})
		p.mu.Unlock()

		p.logger.Warn("token refresh failed", "uid", creds.User.ID, "error", err)
	}
}

func (p *Provider) authURL(method string) string {
	return p.authBaseURL + "/" + method + "?key=" + url.QueryEscape(p.apiKey)
}

func (p *Provider) tokenURL() string {
	return p.tokenBaseURL + "/token?key=" + url.QueryEscape(p.apiKey)
}

func (p *Provider) postJSON(ctx context.Context, endpoint string, body, dest any) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	return p.post(ctx, endpoint, "application/json", bytes.NewReader(bodyBytes), dest)
}

// post performs a POST and decodes JSON into dest. Failures are returned as *domain.AuthError.
func (p *Provider) post(ctx context.Context, endpoint, contentType string, body io.Reader, dest any) error {
	if p.apiKey == "" {
		return domain.NewAuthError(domain.AuthUnknown, "", errors.New("firebase api key not set"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Error("identity request failed", "error", err)
		return domain.NewAuthError(domain.AuthNetworkUnavailable, "", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.NewAuthError(domain.AuthNetworkUnavailable, "", fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			code := errorCode(apiErr.Error.Message)
			p.logger.Warn("identity request rejected", "status", resp.StatusCode, "code", code)
			return domain.NewAuthError(kindForCode(code), code, nil)
		}
		p.logger.Error("identity request error", "status", resp.StatusCode)
		kind := domain.AuthUnknown
		if resp.StatusCode >= 500 {
			kind = domain.AuthNetworkUnavailable
		}
		return domain.NewAuthError(kind, "", fmt.Errorf("status %d", resp.StatusCode))
	}

	if err := json.Unmarshal(respBody, dest); err != nil {
		return domain.NewAuthError(domain.AuthUnknown, "", fmt.Errorf("failed to parse response: %w", err))
	}
	return nil
}
