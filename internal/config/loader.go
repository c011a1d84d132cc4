package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".onionwatch"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File is the YAML configuration file shape. Every field is optional;
// unset fields leave the corresponding Config value untouched, so the file
// only needs to name what it overrides.
type File struct {
	// ListenAddress overrides the HTTP listen address.
	ListenAddress string `yaml:"listen_address"`

	// DBDir overrides the database directory.
	DBDir string `yaml:"db_dir"`

	// FetchTimeoutSeconds overrides the per-request fetch timeout.
	FetchTimeoutSeconds int `yaml:"fetch_timeout_seconds"`

	// FetchLimit overrides the detail-fetch concurrency bound.
	FetchLimit int `yaml:"fetch_limit"`

	// UserAgent overrides the marketplace request User-Agent.
	UserAgent string `yaml:"user_agent"`

	// EmbeddedTor enables the embedded Tor daemon fallback.
	EmbeddedTor bool `yaml:"embedded_tor"`
}

// LoadConfigFile loads overrides from a YAML file. If the file does not
// exist, it returns ErrConfigNotFound; callers handle that differently
// depending on whether the path was explicitly specified by the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Apply merges the file's set fields into the config.
func (f *File) Apply(c *Config) {
	if f.ListenAddress != "" {
		c.ListenAddress = f.ListenAddress
	}
	if f.DBDir != "" {
		c.DBDir = f.DBDir
	}
	if f.FetchTimeoutSeconds > 0 {
		c.FetchTimeout = time.Duration(f.FetchTimeoutSeconds) * time.Second
	}
	if f.FetchLimit > 0 {
		c.FetchLimit = f.FetchLimit
	}
	if f.UserAgent != "" {
		c.UserAgent = f.UserAgent
	}
	if f.EmbeddedTor {
		c.EmbeddedTor = true
	}
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .onionwatch in the current directory
// 3. Look for .onionwatch in the user's home directory
//
// Returns the path if found, or an empty string.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}
