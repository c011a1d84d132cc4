package tor

import (
	"context"
	"encoding/base32"
	"io"
	"net"
	"strings"
	"testing"
	"time"
)

// TestProxyConfigValidate tests endpoint validation.
func TestProxyConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     ProxyConfig
		wantErr bool
	}{
		{
			name: "valid socks5h pair",
			cfg: ProxyConfig{
				HTTP:  "socks5h://127.0.0.1:9050",
				HTTPS: "socks5h://127.0.0.1:9050",
			},
			wantErr: false,
		},
		{
			name: "valid http proxy pair",
			cfg: ProxyConfig{
				HTTP:  "http://10.0.0.2:8118",
				HTTPS: "http://10.0.0.2:8118",
			},
			wantErr: false,
		},
		{
			name:    "missing endpoints",
			cfg:     ProxyConfig{},
			wantErr: true,
		},
		{
			name: "missing https endpoint",
			cfg: ProxyConfig{
				HTTP: "socks5h://127.0.0.1:9050",
			},
			wantErr: true,
		},
		{
			name: "unsupported scheme",
			cfg: ProxyConfig{
				HTTP:  "ftp://127.0.0.1:21",
				HTTPS: "ftp://127.0.0.1:21",
			},
			wantErr: true,
		},
		{
			name: "missing port",
			cfg: ProxyConfig{
				HTTP:  "socks5h://127.0.0.1",
				HTTPS: "socks5h://127.0.0.1",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestNewClient tests client construction for both endpoint kinds.
func TestNewClient(t *testing.T) {
	t.Parallel()

	t.Run("socks endpoint caches a dialer", func(t *testing.T) {
		t.Parallel()

		c, err := NewClient(SocksConfig("127.0.0.1:9050"), 30*time.Second)
		if err != nil {
			t.Fatalf("NewClient() error = %v", err)
		}
		if c.dialer == nil {
			t.Error("expected SOCKS dialer to be cached")
		}
		if c.NewHTTPClient() == nil {
			t.Error("expected HTTP client")
		}
	})

	t.Run("http proxy endpoint uses proxy selector", func(t *testing.T) {
		t.Parallel()

		cfg := ProxyConfig{HTTP: "http://127.0.0.1:8118", HTTPS: "http://127.0.0.1:8119"}
		c, err := NewClient(cfg, 30*time.Second)
		if err != nil {
			t.Fatalf("NewClient() error = %v", err)
		}
		if c.dialer != nil {
			t.Error("expected no SOCKS dialer for HTTP proxy endpoints")
		}
	})

	t.Run("invalid endpoint", func(t *testing.T) {
		t.Parallel()

		_, err := NewClient(ProxyConfig{HTTP: "::bad::", HTTPS: "::bad::"}, time.Second)
		if err == nil {
			t.Error("expected error for invalid endpoint")
		}
	})
}

// fakeSocks5Server runs a minimal SOCKS5 responder for handshake tests.
// It accepts one connection, answers the auth negotiation, and replies to
// the CONNECT request with "host unreachable" — which is exactly what Tor
// does for a non-existent onion address.
func fakeSocks5Server(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		// Auth negotiation: read greeting, accept no-auth.
		greeting := make([]byte, 3)
		if _, err := io.ReadFull(conn, greeting); err != nil {
			return
		}
		if _, err := conn.Write([]byte{socks5Version, socks5AuthNone}); err != nil {
			return
		}

		// CONNECT request: header + domain + port.
		header := make([]byte, 5)
		if _, err := io.ReadFull(conn, header); err != nil {
			return
		}
		rest := make([]byte, int(header[4])+2)
		if _, err := io.ReadFull(conn, rest); err != nil {
			return
		}

		// Reply: host unreachable with a zero bind address.
		_, _ = conn.Write([]byte{socks5Version, 0x04, 0x00, 0x01, 0, 0, 0, 0, 0, 0})
	}()

	return ln.Addr().String()
}

// TestCheckConnection tests the SOCKS5 handshake probe.
func TestCheckConnection(t *testing.T) {
	t.Parallel()

	t.Run("well-behaved socks5 proxy", func(t *testing.T) {
		t.Parallel()

		addr := fakeSocks5Server(t)
		c, err := NewClient(SocksConfig(addr), 5*time.Second)
		if err != nil {
			t.Fatalf("NewClient() error = %v", err)
		}

		if status := c.CheckConnection(context.Background()); status != ProxyStatusOK {
			t.Errorf("CheckConnection() = %v, want %v", status, ProxyStatusOK)
		}
	})

	t.Run("not a socks5 proxy", func(t *testing.T) {
		t.Parallel()

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to listen: %v", err)
		}
		t.Cleanup(func() { _ = ln.Close() })
		go func() {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
			buf := make([]byte, 3)
			_, _ = io.ReadFull(conn, buf)
			// An HTTP-ish response, clearly not SOCKS5.
			_, _ = conn.Write([]byte("HTTP/1.1 400 Bad Request\r\n\r\n"))
		}()

		c, err := NewClient(SocksConfig(ln.Addr().String()), 5*time.Second)
		if err != nil {
			t.Fatalf("NewClient() error = %v", err)
		}

		if status := c.CheckConnection(context.Background()); status != ProxyStatusWrongType {
			t.Errorf("CheckConnection() = %v, want %v", status, ProxyStatusWrongType)
		}
	})

	t.Run("nothing listening", func(t *testing.T) {
		t.Parallel()

		// Reserve a port, then close it so nothing is listening.
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to listen: %v", err)
		}
		addr := ln.Addr().String()
		_ = ln.Close()

		c, err := NewClient(SocksConfig(addr), 5*time.Second)
		if err != nil {
			t.Fatalf("NewClient() error = %v", err)
		}

		if status := c.CheckConnection(context.Background()); status != ProxyStatusCannotConnect {
			t.Errorf("CheckConnection() = %v, want %v", status, ProxyStatusCannotConnect)
		}
	})
}

// TestProxyStatusStrings tests status descriptions and error mapping.
func TestProxyStatusStrings(t *testing.T) {
	t.Parallel()

	if ProxyStatusOK.String() != "OK" {
		t.Errorf("ProxyStatusOK.String() = %q", ProxyStatusOK.String())
	}
	if ProxyStatusOK.Error() != nil {
		t.Error("ProxyStatusOK.Error() should be nil")
	}
	if ProxyStatusTimeout.Error() == nil {
		t.Error("ProxyStatusTimeout.Error() should be non-nil")
	}
}

// buildV3Address constructs a syntactically and cryptographically valid v3
// onion address from a synthetic public key.
func buildV3Address(pubkey []byte) string {
	checksum := computeV3Checksum(pubkey, OnionV3Version)
	data := make([]byte, 0, 35)
	data = append(data, pubkey...)
	data = append(data, checksum...)
	data = append(data, OnionV3Version)
	return strings.ToLower(base32.StdEncoding.EncodeToString(data)) + OnionSuffix
}

// TestIsValidV3Address tests onion address format and checksum validation.
func TestIsValidV3Address(t *testing.T) {
	t.Parallel()

	pubkey := make([]byte, 32)
	for i := range pubkey {
		pubkey[i] = byte(i * 7)
	}
	valid := buildV3Address(pubkey)

	if !IsValidV3Address(valid) {
		t.Errorf("expected %q to validate", valid)
	}

	// Corrupt one character: checksum must fail. Flip the first character
	// to a different base32 symbol.
	corrupted := valid
	if corrupted[0] == 'a' {
		corrupted = "b" + corrupted[1:]
	} else {
		corrupted = "a" + corrupted[1:]
	}
	if IsValidV3Address(corrupted) {
		t.Errorf("expected corrupted address %q to fail validation", corrupted)
	}

	if IsValidV3Address("tooshort.onion") {
		t.Error("expected short address to fail validation")
	}
	if IsValidV3Address("") {
		t.Error("expected empty address to fail validation")
	}
}

// TestValidateOnionHost tests target host validation.
func TestValidateOnionHost(t *testing.T) {
	t.Parallel()

	pubkey := make([]byte, 32)
	valid := buildV3Address(pubkey)

	if err := ValidateOnionHost(valid); err != nil {
		t.Errorf("ValidateOnionHost(%q) error = %v", valid, err)
	}
	if err := ValidateOnionHost("example.com"); err != nil {
		t.Errorf("clearnet host should pass, got %v", err)
	}
	if err := ValidateOnionHost("nonsense.onion"); err == nil {
		t.Error("expected invalid onion host to fail")
	}
}
