package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values are chosen based on typical Tor network characteristics.
const (
	// DefaultListenAddress is where the HTTP API listens. Loopback only:
	// the service handles API keys in request bodies and is meant to sit
	// behind a reverse proxy if exposed further.
	DefaultListenAddress = "127.0.0.1:8080"

	// DefaultTorProxyAddress is the standard Tor SOCKS5 proxy address.
	// Port 9050 is the default for the Tor daemon's SOCKS port. We use
	// 127.0.0.1 instead of localhost to avoid DNS resolution overhead and
	// potential issues with IPv6 resolution on some systems.
	DefaultTorProxyAddress = "127.0.0.1:9050"

	// DefaultFetchTimeout applies to each marketplace request. Tor adds
	// multiple relay hops, so this is generous compared to clearnet
	// defaults; a shorter timeout would fail many reachable services.
	DefaultFetchTimeout = 30 * time.Second

	// DefaultFetchLimit bounds concurrent detail-page fetches per scan.
	// Each connection consumes a Tor circuit, so this stays small.
	DefaultFetchLimit = 4

	// DefaultUserAgent is sent with marketplace requests.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0"

	// DefaultMaxBodySize limits the response body size to read. 10MB is
	// sufficient for listing and detail pages while preventing memory
	// exhaustion from unexpectedly large responses.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultTorStartupTimeout is the maximum time to wait for the
	// embedded Tor daemon to bootstrap. 3 minutes is typically sufficient,
	// but may need to be increased for slow connections.
	DefaultTorStartupTimeout = 3 * time.Minute

	// AppName is the application name used for XDG directory paths.
	AppName = "onionwatch"
)

// Config holds all configuration options for the service. It is populated
// from defaults, then the optional config file, then CLI flags, and passed
// through the application via dependency injection rather than global
// state.
//
// Design decision: We use a single flat struct instead of nested structs
// for simplicity. The number of options is manageable, and nesting would
// add complexity without significant benefit.
type Config struct {
	// ListenAddress is the HTTP API listen address in "host:port" format.
	ListenAddress string

	// DBDir is the directory holding the SQLite database. Defaults to the
	// XDG data directory (~/.local/share/onionwatch on Linux).
	DBDir string

	// FetchTimeout is the per-request timeout for marketplace fetches.
	FetchTimeout time.Duration

	// FetchLimit bounds concurrent detail-page fetches within one scan.
	FetchLimit int

	// UserAgent is the User-Agent header sent with marketplace requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// EmbeddedTor starts an embedded Tor daemon at startup and uses it as
	// the fallback proxy for scan requests that carry no endpoints.
	//
	// Note: The embedded daemon takes 1-3 minutes to bootstrap on first
	// start; the serve command blocks until it is ready.
	EmbeddedTor bool

	// TorStartupTimeout is the maximum time to wait for the embedded Tor
	// daemon to bootstrap. Only used when EmbeddedTor is true.
	TorStartupTimeout time.Duration

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only info and above are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file. If empty, the
	// tool searches for .onionwatch in the current directory and then in
	// the user's home directory.
	ConfigFilePath string
}

// New creates a Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeouts, listen
// address). This also serves as documentation of what the defaults are.
func New() *Config {
	return &Config{
		ListenAddress:     DefaultListenAddress,
		DBDir:             XDGDataDir(),
		FetchTimeout:      DefaultFetchTimeout,
		FetchLimit:        DefaultFetchLimit,
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
		TorStartupTimeout: DefaultTorStartupTimeout,
	}
}

// XDGDataDir returns the XDG data directory for the service.
// On Linux: ~/.local/share/onionwatch
// On macOS: ~/Library/Application Support/onionwatch
// On Windows: %LOCALAPPDATA%\onionwatch
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// Validate checks if the configuration is valid. It is called once after
// flag parsing, before the service starts, so misconfiguration fails fast
// with a clear message.
//
// We return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if c.ListenAddress == "" {
		return ErrNoListenAddress
	}
	if c.DBDir == "" {
		return ErrNoDBDir
	}
	if c.FetchTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.FetchLimit <= 0 {
		return ErrInvalidFetchLimit
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	return nil
}
