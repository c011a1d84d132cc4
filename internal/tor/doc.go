// Package tor provides Tor network connectivity for the collection pipeline.
// It builds HTTP clients that route requests through caller-supplied proxy
// endpoints (SOCKS5 or plain HTTP), verifies proxy reachability with a real
// SOCKS5 handshake, validates v3 onion addresses, and can manage an embedded
// Tor daemon as a fallback when no proxy endpoints are configured.
package tor
