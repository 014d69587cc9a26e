// Package identity selects the configured identity provider
package identity

import (
	"fmt"
	"log/slog"

	"github.com/mmcdole/marquee/internal/config"
	"github.com/mmcdole/marquee/internal/domain"
	"github.com/mmcdole/marquee/internal/identity/firebase"
	"github.com/mmcdole/marquee/internal/identity/memory"
)

// Provider is an identity provider that owns background resources
type Provider interface {
	domain.IdentityProvider
	Close() error
}

// NewProvider builds the provider named in cfg. credentials is where the
// firebase provider keeps its refresh token; it may be nil.
func NewProvider(cfg config.IdentityConfig, credentials domain.SessionStore, logger *slog.Logger) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderFirebase:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("identity.api_key is required for the firebase provider")
		}
		return firebase.NewProvider(cfg.APIKey, firebase.Options{
			AuthBaseURL:  cfg.AuthBaseURL,
			TokenBaseURL: cfg.TokenBaseURL,
			Store:        credentials,
		}, logger), nil
	case config.ProviderMemory:
		return memory.NewProvider(nil, 0, logger)
	default:
		return nil, fmt.Errorf("unknown identity provider: %q", cfg.Provider)
	}
}
