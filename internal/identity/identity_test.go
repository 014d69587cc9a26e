package identity

import (
	"testing"

	"github.com/mmcdole/marquee/internal/config"
	"github.com/mmcdole/marquee/internal/identity/firebase"
	"github.com/mmcdole/marquee/internal/identity/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(config.IdentityConfig{Provider: config.ProviderMemory}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &memory.Provider{}, p)
	p.Close()

	p, err = NewProvider(config.IdentityConfig{Provider: config.ProviderFirebase, APIKey: "k"}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &firebase.Provider{}, p)
	p.Close()

	_, err = NewProvider(config.IdentityConfig{Provider: config.ProviderFirebase}, nil, nil)
	assert.Error(t, err)

	_, err = NewProvider(config.IdentityConfig{Provider: "ldap"}, nil, nil)
	assert.Error(t, err)
}
