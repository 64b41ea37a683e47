package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./crate.db" {
			t.Errorf("expected database path ./crate.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Credentials.Spotify.ClientID != "your_spotify_client_id" {
			t.Errorf("expected spotify client_id your_spotify_client_id, got %s", config.Credentials.Spotify.ClientID)
		}

		if config.API.MaxRetries != 3 {
			t.Errorf("expected max_retries 3, got %d", config.API.MaxRetries)
		}

		if config.API.PageDelay() != 100*time.Millisecond {
			t.Errorf("expected page delay 100ms, got %v", config.API.PageDelay())
		}

		if config.Storage.Backend != "sqlite" {
			t.Errorf("expected sqlite storage backend, got %s", config.Storage.Backend)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"

[server]
host = "0.0.0.0"
port = 8080

[credentials.spotify]
client_id = "test_client_id"
redirect_uri = "http://localhost:8080/auth/callback"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Server.Addr() != "0.0.0.0:8080" {
			t.Errorf("expected addr 0.0.0.0:8080, got %s", config.Server.Addr())
		}

		if config.Credentials.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected spotify client_id test_client_id, got %s", config.Credentials.Spotify.ClientID)
		}

		if config.API.BaseURL != "https://api.spotify.com/v1" {
			t.Errorf("missing sections should keep defaults, got base_url %q", config.API.BaseURL)
		}

		if got := config.CallbackPath(); got != "/auth/callback" {
			t.Errorf("expected callback path /auth/callback, got %s", got)
		}
	})

	t.Run("LoadConfig missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
		if !errors.Is(err, ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("LoadConfig invalid toml", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[server\nport = "), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestApplyEnv(t *testing.T) {
	t.Run("process environment overrides", func(t *testing.T) {
		t.Setenv(EnvClientID, "env-client")
		t.Setenv(EnvStorageBackend, "KEYRING")

		config := DefaultConfig()
		if err := config.ApplyEnv(""); err != nil {
			t.Fatalf("ApplyEnv() error = %v", err)
		}

		if config.Credentials.Spotify.ClientID != "env-client" {
			t.Errorf("expected env-client, got %s", config.Credentials.Spotify.ClientID)
		}
		if config.Storage.Backend != "keyring" {
			t.Errorf("expected keyring backend, got %s", config.Storage.Backend)
		}
	})

	t.Run("dotenv file", func(t *testing.T) {
		t.Setenv(EnvDatabasePath, "")
		envFile := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(envFile, []byte(EnvDatabasePath+"=/tmp/from-dotenv.db\n"), 0600); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}
		// godotenv does not override variables that are already set, even when empty
		os.Unsetenv(EnvDatabasePath)

		config := DefaultConfig()
		if err := config.ApplyEnv(envFile); err != nil {
			t.Fatalf("ApplyEnv() error = %v", err)
		}

		if config.Database.Path != "/tmp/from-dotenv.db" {
			t.Errorf("expected database path from .env, got %s", config.Database.Path)
		}
	})

	t.Run("missing dotenv file is ignored", func(t *testing.T) {
		config := DefaultConfig()
		if err := config.ApplyEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
			t.Errorf("expected missing .env to be ignored, got %v", err)
		}
	})
}

func TestValidate(t *testing.T) {
	tc := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{
			name:   "valid",
			mutate: func(c *Config) { c.Credentials.Spotify.ClientID = "abc" },
		},
		{
			name:    "placeholder client id",
			mutate:  func(c *Config) {},
			wantErr: ErrMissingCredentials,
		},
		{
			name: "relative redirect uri",
			mutate: func(c *Config) {
				c.Credentials.Spotify.ClientID = "abc"
				c.Credentials.Spotify.RedirectURI = "/callback"
			},
			wantErr: ErrInvalidConfig,
		},
		{
			name: "unknown backend",
			mutate: func(c *Config) {
				c.Credentials.Spotify.ClientID = "abc"
				c.Storage.Backend = "redis"
			},
			wantErr: ErrInvalidConfig,
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)

			err := config.Validate()
			if tt.wantErr == nil && err != nil {
				t.Errorf("Validate() unexpected error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
