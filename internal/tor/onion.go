package tor

import (
	"encoding/base32"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Onion address constants.
const (
	// OnionV3Length is the length of a v3 onion address without the
	// ".onion" suffix: 56 characters of base32-encoded data.
	OnionV3Length = 56

	// OnionV3Version is the version byte for v3 onion addresses.
	OnionV3Version = 0x03

	// OnionSuffix is the common suffix for all onion addresses.
	OnionSuffix = ".onion"
)

// onionV3Pattern matches v3 onion addresses (56 base32 characters + .onion).
// Base32 uses lowercase a-z and digits 2-7.
var onionV3Pattern = regexp.MustCompile(`^[a-z2-7]{56}\.onion$`)

// checksumPrefix is the prefix used in v3 onion address checksum
// calculation, per the Tor rendezvous specification.
var checksumPrefix = []byte(".onion checksum")

// IsValidV3Address checks if the given address is a valid v3 onion address.
// It performs both format validation and checksum verification.
//
// Design decision: We perform full checksum validation rather than just
// pattern matching because it catches typos before a scan wastes minutes
// timing out through Tor, and it matches what Tor itself does when
// connecting.
func IsValidV3Address(address string) bool {
	address = strings.ToLower(address)

	if !onionV3Pattern.MatchString(address) {
		return false
	}

	onionPart := strings.TrimSuffix(address, OnionSuffix)

	decoded, err := base32.StdEncoding.DecodeString(strings.ToUpper(onionPart))
	if err != nil {
		return false
	}

	// Decoded data is exactly 35 bytes: 32-byte ed25519 public key,
	// 2-byte checksum, 1-byte version.
	if len(decoded) != 35 {
		return false
	}

	pubkey := decoded[:32]
	checksum := decoded[32:34]
	version := decoded[34]

	if version != OnionV3Version {
		return false
	}

	expected := computeV3Checksum(pubkey, version)
	return checksum[0] == expected[0] && checksum[1] == expected[1]
}

// computeV3Checksum computes the checksum bytes for a v3 onion address:
// the first 2 bytes of SHA3-256(".onion checksum" || pubkey || version).
func computeV3Checksum(pubkey []byte, version byte) []byte {
	data := make([]byte, 0, len(checksumPrefix)+len(pubkey)+1)
	data = append(data, checksumPrefix...)
	data = append(data, pubkey...)
	data = append(data, version)

	hash := sha3.Sum256(data)
	return hash[:2]
}

// IsOnionTarget reports whether the target URL points at a .onion host.
// Targets are allowed to be clearnet URLs too (useful against mirrors and
// in tests), so this is a hint for validation, not a gate.
func IsOnionTarget(host string) bool {
	return strings.HasSuffix(strings.ToLower(host), OnionSuffix)
}

// ValidateOnionHost checks a .onion hostname extracted from a target URL.
// Returns nil for valid v3 addresses and an error describing the problem
// otherwise. Non-onion hosts always pass.
func ValidateOnionHost(host string) error {
	host = strings.ToLower(host)
	if !IsOnionTarget(host) {
		return nil
	}
	if IsValidV3Address(host) {
		return nil
	}
	return ErrInvalidOnionAddress
}

// ErrInvalidOnionAddress is returned when a .onion hostname fails v3
// format or checksum validation.
var ErrInvalidOnionAddress = &onionError{message: "invalid v3 onion address"}

// onionError is a custom error type for onion address errors.
type onionError struct {
	message string
}

// Error implements the error interface.
func (e *onionError) Error() string {
	return e.message
}
