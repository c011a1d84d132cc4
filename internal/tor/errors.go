package tor

import "errors"

// Proxy connectivity errors.
//
// Design decision: We define specific error types rather than wrapping all
// errors generically. This allows callers to surface different failure modes
// to the user (the test-connection endpoint reports them verbatim).
var (
	// ErrProxyNotSocks is returned when the configured proxy address
	// responds but does not speak the SOCKS5 protocol. This typically
	// happens when pointing at an HTTP proxy or an unrelated service.
	ErrProxyNotSocks = errors.New("proxy is not a SOCKS5 proxy")

	// ErrProxyCannotConnect is returned when we cannot establish a TCP
	// connection to the proxy address. Tor is likely not running or the
	// endpoint is wrong.
	ErrProxyCannotConnect = errors.New("cannot connect to proxy")

	// ErrProxyTimeout is returned when the connection to the proxy times
	// out. This may indicate network issues or an overloaded Tor daemon.
	ErrProxyTimeout = errors.New("timeout connecting to proxy")

	// ErrInvalidProxyEndpoint is returned when a proxy endpoint cannot be
	// parsed or uses an unsupported scheme. Supported schemes are socks5,
	// socks5h, http, and https.
	ErrInvalidProxyEndpoint = errors.New("invalid proxy endpoint: expected socks5://, socks5h://, http://, or https:// URL")

	// ErrNoProxyConfigured is returned when an operation requires a proxy
	// but neither endpoint is set and no embedded fallback is available.
	ErrNoProxyConfigured = errors.New("no proxy endpoints configured")
)

// ProxyStatus represents the result of checking the proxy connection.
type ProxyStatus int

const (
	// ProxyStatusOK indicates the proxy is reachable and well-behaved.
	ProxyStatusOK ProxyStatus = iota

	// ProxyStatusWrongType indicates the endpoint answered but is not the
	// kind of proxy it claims to be.
	ProxyStatusWrongType

	// ProxyStatusCannotConnect indicates no TCP connection could be made.
	ProxyStatusCannotConnect

	// ProxyStatusTimeout indicates the connection attempt timed out.
	ProxyStatusTimeout
)

// String returns a human-readable description of the proxy status.
func (s ProxyStatus) String() string {
	switch s {
	case ProxyStatusOK:
		return "OK"
	case ProxyStatusWrongType:
		return "wrong type (not SOCKS5)"
	case ProxyStatusCannotConnect:
		return "cannot connect"
	case ProxyStatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error returns the appropriate error for this status, or nil if OK.
func (s ProxyStatus) Error() error {
	switch s {
	case ProxyStatusOK:
		return nil
	case ProxyStatusWrongType:
		return ErrProxyNotSocks
	case ProxyStatusCannotConnect:
		return ErrProxyCannotConnect
	case ProxyStatusTimeout:
		return ErrProxyTimeout
	default:
		return errors.New("unknown proxy status")
	}
}
