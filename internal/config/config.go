package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ProviderType identifies the identity provider backend
type ProviderType string

const (
	ProviderFirebase ProviderType = "firebase"
	ProviderMemory   ProviderType = "memory"
)

// Config holds all application configuration
type Config struct {
	TMDB     TMDBConfig     `mapstructure:"tmdb"`
	Identity IdentityConfig `mapstructure:"identity"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Player   PlayerConfig   `mapstructure:"player"`
}

// TMDBConfig holds catalog API configuration
type TMDBConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	ImageBaseURL      string        `mapstructure:"image_base_url"`
	Language          string        `mapstructure:"language"` // e.g. "en-US"
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"` // 0 disables client-side limiting
}

// IdentityConfig holds identity provider configuration
type IdentityConfig struct {
	Provider     ProviderType `mapstructure:"provider"` // "firebase" or "memory"
	APIKey       string       `mapstructure:"api_key"`  // Firebase web API key
	AuthBaseURL  string       `mapstructure:"auth_base_url"`
	TokenBaseURL string       `mapstructure:"token_base_url"`
}

// StorageConfig holds local persistence configuration
type StorageConfig struct {
	Path string `mapstructure:"path"` // BoltDB file; empty = memory-only
}

// CacheConfig holds catalog cache configuration
type CacheConfig struct {
	MaxStreams int `mapstructure:"max_streams"` // 0 = unbounded
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// PlayerConfig holds the command used to open trailers and clips
type PlayerConfig struct {
	Command string   `mapstructure:"command"` // empty = system default
	Args    []string `mapstructure:"args"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		TMDB: TMDBConfig{
			BaseURL:           "https://api.themoviedb.org/3",
			ImageBaseURL:      "https://image.tmdb.org/t/p",
			Language:          "en-US",
			Timeout:           15 * time.Second,
			RequestsPerSecond: 20,
		},
		Identity: IdentityConfig{
			Provider:     ProviderFirebase,
			AuthBaseURL:  "https://identitytoolkit.googleapis.com/v1",
			TokenBaseURL: "https://securetoken.googleapis.com/v1",
		},
		Storage: StorageConfig{
			Path: filepath.Join(defaultDataPath(), "marquee.db"),
		},
		Cache: CacheConfig{
			MaxStreams: 64,
		},
		Logging: LoggingConfig{
			File:  filepath.Join(defaultDataPath(), "marquee.log"),
			Level: "INFO",
		},
	}
}

// defaultDataPath returns the default data directory for the current OS
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "marquee")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "marquee")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "marquee")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "marquee")
	}
}

// LoadConfig loads configuration from the default locations and environment
func LoadConfig() (*Config, error) {
	return load(viper.New(), defaultConfigPath(), ".")
}

// LoadConfigFrom loads configuration from an explicit file
func LoadConfigFrom(file string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(file)
	return load(v)
}

func load(v *viper.Viper, paths ...string) (*Config, error) {
	cfg := DefaultConfig()

	if len(paths) > 0 {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, p := range paths {
			v.AddConfigPath(p)
		}
	}

	// Environment variable overrides: MARQUEE_TMDB_API_KEY, MARQUEE_IDENTITY_API_KEY, ...
	v.SetEnvPrefix("MARQUEE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// bindEnv registers every key so AutomaticEnv works for values absent from the file
func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"tmdb.api_key", "tmdb.base_url", "tmdb.image_base_url", "tmdb.language",
		"tmdb.timeout", "tmdb.requests_per_second",
		"identity.provider", "identity.api_key", "identity.auth_base_url", "identity.token_base_url",
		"storage.path", "cache.max_streams", "logging.file", "logging.level",
		"player.command",
	} {
		_ = v.BindEnv(key)
	}
}

// Validate reports missing required values
func (c *Config) Validate() error {
	var errs []error
	if c.TMDB.APIKey == "" {
		errs = append(errs, errors.New("tmdb.api_key is required (or set MARQUEE_TMDB_API_KEY)"))
	}
	switch c.Identity.Provider {
	case ProviderFirebase:
		if c.Identity.APIKey == "" {
			errs = append(errs, errors.New("identity.api_key is required for the firebase provider"))
		}
	case ProviderMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown identity provider: %q", c.Identity.Provider))
	}
	return errors.Join(errs...)
}

// SaveConfig saves the configuration to the default config file
func SaveConfig(cfg *Config) error {
	return SaveConfigTo(cfg, filepath.Join(defaultConfigPath(), "config.yaml"))
}

// SaveConfigTo saves the configuration to file
func SaveConfigTo(cfg *Config, file string) error {
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()

	// Set fields individually to ensure correct key names (snake_case)
	v.Set("tmdb.api_key", cfg.TMDB.APIKey)
	v.Set("tmdb.base_url", cfg.TMDB.BaseURL)
	v.Set("tmdb.image_base_url", cfg.TMDB.ImageBaseURL)
	v.Set("tmdb.language", cfg.TMDB.Language)
	v.Set("tmdb.timeout", cfg.TMDB.Timeout.String())
	v.Set("tmdb.requests_per_second", cfg.TMDB.RequestsPerSecond)

	v.Set("identity.provider", string(cfg.Identity.Provider))
	v.Set("identity.api_key", cfg.Identity.APIKey)
	v.Set("identity.auth_base_url", cfg.Identity.AuthBaseURL)
	v.Set("identity.token_base_url", cfg.Identity.TokenBaseURL)

	v.Set("storage.path", cfg.Storage.Path)
	v.Set("cache.max_streams", cfg.Cache.MaxStreams)

	v.Set("logging.file", cfg.Logging.File)
	v.Set("logging.level", cfg.Logging.Level)

	v.Set("player.command", cfg.Player.Command)
	v.Set("player.args", cfg.Player.Args)

	if err := v.WriteConfigAs(file); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ConfigPath returns the default config file path
func ConfigPath() string {
	return filepath.Join(defaultConfigPath(), "config.yaml")
}
