package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestNewDefaults tests that the constructor produces a valid config.
func TestNewDefaults(t *testing.T) {
	t.Parallel()

	c := New()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}
	if c.ListenAddress != DefaultListenAddress {
		t.Errorf("ListenAddress = %q", c.ListenAddress)
	}
	if c.FetchTimeout != DefaultFetchTimeout {
		t.Errorf("FetchTimeout = %v", c.FetchTimeout)
	}
	if c.DBDir == "" {
		t.Error("DBDir must default to the XDG data directory")
	}
}

// TestValidate tests each validation rule.
func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "empty listen address",
			mutate:  func(c *Config) { c.ListenAddress = "" },
			wantErr: ErrNoListenAddress,
		},
		{
			name:    "empty db dir",
			mutate:  func(c *Config) { c.DBDir = "" },
			wantErr: ErrNoDBDir,
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.FetchTimeout = 0 },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "zero fetch limit",
			mutate:  func(c *Config) { c.FetchLimit = 0 },
			wantErr: ErrInvalidFetchLimit,
		},
		{
			name:    "negative body size",
			mutate:  func(c *Config) { c.MaxBodySize = -1 },
			wantErr: ErrInvalidMaxBodySize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := New()
			tt.mutate(c)
			if err := c.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestLoadConfigFile tests YAML loading and merge precedence.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("overrides only set fields", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		yaml := `
listen_address: "0.0.0.0:9999"
fetch_timeout_seconds: 45
embedded_tor: true
`
		if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
			t.Fatal(err)
		}

		f, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("LoadConfigFile() error = %v", err)
		}

		c := New()
		f.Apply(c)

		if c.ListenAddress != "0.0.0.0:9999" {
			t.Errorf("ListenAddress = %q", c.ListenAddress)
		}
		if c.FetchTimeout != 45*time.Second {
			t.Errorf("FetchTimeout = %v", c.FetchTimeout)
		}
		if !c.EmbeddedTor {
			t.Error("EmbeddedTor not applied")
		}
		// Untouched fields keep their defaults.
		if c.UserAgent != DefaultUserAgent {
			t.Errorf("UserAgent = %q, want default", c.UserAgent)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("error = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte(":\tnot yaml"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected parse error")
		}
	})
}

// TestFindConfigFile tests the search order.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit path wins", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
			t.Fatal(err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("FindConfigFile() = %q, want %q", got, path)
		}
	})

	t.Run("missing explicit path yields empty", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile(filepath.Join(t.TempDir(), "absent")); got != "" {
			t.Errorf("FindConfigFile() = %q, want empty", got)
		}
	})
}
