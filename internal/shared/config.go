package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override values from the config file.
const (
	EnvClientID       = "CRATE_SPOTIFY_CLIENT_ID"
	EnvRedirectURI    = "CRATE_SPOTIFY_REDIRECT_URI"
	EnvStorageBackend = "CRATE_STORAGE_BACKEND"
	EnvDatabasePath   = "CRATE_DATABASE_PATH"
	EnvLogLevel       = "CRATE_LOG_LEVEL"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	API         APIConfig         `toml:"api"`
	Storage     StorageConfig     `toml:"storage"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Export      ExportConfig      `toml:"export"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig holds the public PKCE client registration. There is no client secret.
type SpotifyConfig struct {
	ClientID    string `toml:"client_id"`
	RedirectURI string `toml:"redirect_uri"`
}

// APIConfig holds the Spotify endpoints and request pacing.
type APIConfig struct {
	BaseURL           string `toml:"base_url"`
	AuthURL           string `toml:"auth_url"`
	TokenURL          string `toml:"token_url"`
	MaxRetries        int    `toml:"max_retries"`
	PageDelayMS       int    `toml:"page_delay_ms"`
	DefaultRetryAfter int    `toml:"default_retry_after"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
}

// PageDelay returns the pause between successive page fetches.
func (c APIConfig) PageDelay() time.Duration {
	return time.Duration(c.PageDelayMS) * time.Millisecond
}

// Timeout returns the HTTP client timeout, defaulting to 30 seconds.
func (c APIConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// StorageConfig selects the credential backend.
type StorageConfig struct {
	Backend string `toml:"backend"`
	Dir     string `toml:"dir"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains the local callback listener settings.
type ServerConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	HomePath string `toml:"home_path"`
}

// Addr returns host:port for [net/http.Server].
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ExportConfig contains bulk export defaults.
type ExportConfig struct {
	Format    string  `toml:"format"`
	Workers   int     `toml:"workers"`
	RateLimit float64 `toml:"rate_limit"`
}

// LogConfig sets the default log level name (debug, info, warn, error).
type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overlays environment variables onto c.
//
// When envFile is non-empty and exists it is loaded first with godotenv; variables
// already present in the process environment win over the file.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if v := os.Getenv(EnvClientID); v != "" {
		c.Credentials.Spotify.ClientID = v
	}
	if v := os.Getenv(EnvRedirectURI); v != "" {
		c.Credentials.Spotify.RedirectURI = v
	}
	if v := os.Getenv(EnvStorageBackend); v != "" {
		c.Storage.Backend = strings.ToLower(v)
	}
	if v := os.Getenv(EnvDatabasePath); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate checks the values needed to talk to Spotify.
func (c *Config) Validate() error {
	id := c.Credentials.Spotify.ClientID
	if id == "" || id == "your_spotify_client_id" {
		return fmt.Errorf("%w: spotify client_id is not set", ErrMissingCredentials)
	}

	u, err := url.Parse(c.Credentials.Spotify.RedirectURI)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: redirect_uri %q must be an absolute URL", ErrInvalidConfig, c.Credentials.Spotify.RedirectURI)
	}

	switch c.Storage.Backend {
	case "sqlite", "keyring", "file", "memory", "none", "":
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, c.Storage.Backend)
	}

	if c.API.MaxRetries < 0 {
		return fmt.Errorf("%w: max_retries must not be negative", ErrInvalidConfig)
	}
	return nil
}

// CallbackPath returns the path component of the redirect URI, defaulting to /callback.
func (c *Config) CallbackPath() string {
	u, err := url.Parse(c.Credentials.Spotify.RedirectURI)
	if err != nil || u.Path == "" {
		return "/callback"
	}
	return u.Path
}
