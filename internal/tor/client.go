package tor

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// checkProxyTimeout is the timeout for checking if the proxy is available.
// We use a short timeout because this is just a connectivity check, not an
// actual request through Tor.
const checkProxyTimeout = 2 * time.Second

// ProxyConfig holds the two proxy endpoints a scan request carries: one
// used for plain HTTP requests and one for HTTPS. When scanning through
// Tor they are usually the same SOCKS endpoint, but the pair is kept so
// split configurations (e.g. an HTTP CONNECT proxy for TLS only) work too.
//
// Endpoints are full URLs: "socks5h://127.0.0.1:9050" or
// "http://10.0.0.2:8118". The socks5 and socks5h schemes behave
// identically here because the SOCKS5 dialer always forwards hostnames
// to the proxy, which is what .onion resolution requires.
type ProxyConfig struct {
	// HTTP is the proxy endpoint for plain HTTP requests.
	HTTP string

	// HTTPS is the proxy endpoint for HTTPS requests.
	HTTPS string
}

// IsZero reports whether no endpoint is configured.
func (c ProxyConfig) IsZero() bool {
	return c.HTTP == "" && c.HTTPS == ""
}

// Validate checks that both endpoints are present and parseable.
func (c ProxyConfig) Validate() error {
	if c.HTTP == "" || c.HTTPS == "" {
		return ErrNoProxyConfigured
	}
	if _, err := parseEndpoint(c.HTTP); err != nil {
		return err
	}
	if _, err := parseEndpoint(c.HTTPS); err != nil {
		return err
	}
	return nil
}

// endpoint is a parsed proxy endpoint.
type endpoint struct {
	scheme string // socks5, socks5h, http, https
	host   string // host:port
	u      *url.URL
}

// socks reports whether the endpoint speaks SOCKS5.
func (e endpoint) socks() bool {
	return e.scheme == "socks5" || e.scheme == "socks5h"
}

// parseEndpoint parses and validates a proxy endpoint URL.
func parseEndpoint(raw string) (endpoint, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return endpoint{}, ErrInvalidProxyEndpoint
	}

	switch u.Scheme {
	case "socks5", "socks5h", "http", "https":
	default:
		return endpoint{}, ErrInvalidProxyEndpoint
	}

	if u.Hostname() == "" || u.Port() == "" {
		return endpoint{}, ErrInvalidProxyEndpoint
	}

	return endpoint{scheme: u.Scheme, host: u.Host, u: u}, nil
}

// Client provides proxied network connectivity for the collector.
// It wraps either a SOCKS5 dialer or an HTTP proxy selector, depending on
// the configured endpoint schemes.
//
// Design decision: We only use the proxy endpoints the caller supplies and
// never manage the Tor daemon here; daemon lifecycle lives in EmbeddedTor.
// The constructor validates the endpoints but does not touch the network,
// which keeps client creation cheap and testable. Call CheckConnection to
// verify the proxy is actually reachable.
type Client struct {
	// httpEndpoint and httpsEndpoint are the parsed proxy endpoints for
	// the two transport variants.
	httpEndpoint  endpoint
	httpsEndpoint endpoint

	// dialer is the SOCKS5 dialer, cached when the HTTP endpoint speaks
	// SOCKS so it is not recreated per connection.
	dialer proxy.Dialer

	// timeout is the default timeout for HTTP clients created here.
	timeout time.Duration
}

// NewClient creates a new proxied client from the given configuration.
// The timeout is used as the default for HTTP clients created by this
// client. Both endpoints must be valid; they may differ in scheme.
func NewClient(cfg ProxyConfig, timeout time.Duration) (*Client, error) {
	httpEp, err := parseEndpoint(cfg.HTTP)
	if err != nil {
		return nil, err
	}
	httpsEp, err := parseEndpoint(cfg.HTTPS)
	if err != nil {
		return nil, err
	}

	c := &Client{
		httpEndpoint:  httpEp,
		httpsEndpoint: httpsEp,
		timeout:       timeout,
	}

	if httpEp.socks() {
		// nil auth: Tor's SOCKS port typically doesn't require it.
		dialer, err := proxy.SOCKS5("tcp", httpEp.host, nil, proxy.Direct)
		if err != nil {
			return nil, ErrInvalidProxyEndpoint
		}
		c.dialer = dialer
	}

	return c, nil
}

// NewHTTPClient creates an HTTP client that routes requests through the
// configured proxy endpoints.
//
// Design decisions carried over from scanning practice:
//   - TLS verification is disabled because hidden services use self-signed
//     certificates; the .onion address itself authenticates the service.
//   - Connection pool limits are small because each connection consumes a
//     Tor circuit.
//   - Compression is disabled to avoid compression side channels on
//     anonymity-sensitive traffic.
//   - Redirects are capped at 10 to stop loops without breaking logins.
func (c *Client) NewHTTPClient() *http.Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // Required for .onion services
		},
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
		DisableCompression:  true,
	}

	if c.dialer != nil {
		// SOCKS endpoints: dial every connection through the proxy.
		// Hostnames are forwarded to the proxy, so .onion names resolve
		// inside the Tor network, never via local DNS.
		transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
			return c.dialer.Dial(network, addr)
		}
	} else {
		// HTTP proxy endpoints: pick the endpoint per request scheme.
		transport.Proxy = func(req *http.Request) (*url.URL, error) {
			if req.URL.Scheme == "https" {
				return c.httpsEndpoint.u, nil
			}
			return c.httpEndpoint.u, nil
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   c.timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// SOCKS5 protocol constants.
const (
	socks5Version       = 0x05
	socks5AuthNone      = 0x00
	socks5AuthNoAccept  = 0xFF
	socks5CmdConnect    = 0x01
	socks5AddrTypeDomID = 0x03

	// socks5TestOnion is a synthetic .onion address used for SOCKS5
	// verification. It is intentionally non-existent: we only verify the
	// proxy responds to SOCKS5 CONNECT requests, not that the connection
	// succeeds. A fake address avoids touching real services.
	socks5TestOnion = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa.onion"
)

// CheckConnection verifies that the configured proxy is running and
// accessible. For SOCKS endpoints it performs a real SOCKS5 handshake;
// for HTTP proxy endpoints it verifies TCP reachability only.
//
// Security note: The handshake check is more robust than matching response
// strings, because a fake proxy cannot easily mimic SOCKS5 protocol
// behavior.
func (c *Client) CheckConnection(ctx context.Context) ProxyStatus {
	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.httpEndpoint.host)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	if !c.httpEndpoint.socks() {
		// Plain HTTP proxy: a successful TCP connect is all we verify.
		return ProxyStatusOK
	}

	if err := conn.SetDeadline(time.Now().Add(checkProxyTimeout)); err != nil {
		return ProxyStatusCannotConnect
	}

	// Step 1: SOCKS5 version negotiation, offering no-auth only.
	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return ProxyStatusCannotConnect
	}

	authResp := make([]byte, 2)
	if _, err := io.ReadFull(conn, authResp); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		// Anything else means it didn't speak SOCKS5 properly.
		return ProxyStatusWrongType
	}

	if authResp[0] != socks5Version {
		return ProxyStatusWrongType
	}
	if authResp[1] == socks5AuthNoAccept || authResp[1] != socks5AuthNone {
		return ProxyStatusWrongType
	}

	// Step 2: send a CONNECT for a synthetic onion address. Any SOCKS5
	// response (including failure codes) proves the proxy actually
	// processes CONNECT requests.
	testOnion := socks5TestOnion
	testPort := uint16(80)

	connectReq := []byte{
		socks5Version,
		socks5CmdConnect,
		0x00, // reserved
		socks5AddrTypeDomID,
		byte(len(testOnion)),
	}
	connectReq = append(connectReq, []byte(testOnion)...)
	connectReq = append(connectReq, byte(testPort>>8), byte(testPort&0xFF))

	if _, err := conn.Write(connectReq); err != nil {
		return ProxyStatusCannotConnect
	}

	connectResp := make([]byte, 4)
	if _, err := io.ReadFull(conn, connectResp); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusWrongType
	}

	if connectResp[0] != socks5Version {
		return ProxyStatusWrongType
	}

	// Tor returns 0x04 (host unreachable) or 0x01 (general failure) for
	// the synthetic address; what matters is that it answered at all.
	return ProxyStatusOK
}

// ProxyHTTP returns the configured HTTP proxy endpoint.
func (c *Client) ProxyHTTP() string {
	return c.httpEndpoint.u.String()
}

// SocksConfig builds a ProxyConfig pointing both transport variants at a
// single SOCKS5 address in "host:port" form. Used for the embedded Tor
// fallback, whose daemon exposes one SOCKS listener.
func SocksConfig(socksAddr string) ProxyConfig {
	ep := "socks5h://" + strings.TrimPrefix(socksAddr, "socks5h://")
	return ProxyConfig{HTTP: ep, HTTPS: ep}
}
