package envelope

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/onionwatch/onionwatch/internal/model"
)

// ErrNoResult is returned by Decode when the envelope is empty. An empty
// envelope is the normal state of a job that has not reached a terminal
// status yet; callers treat it as "no result yet", not as corruption.
var ErrNoResult = errors.New("no result available yet")

// DecodeError is returned when a persisted envelope cannot be decoded.
// It is a normal, representable outcome: stored payloads may predate schema
// changes or have been written by a crashed process, and every consumer
// (display, classification chaining) must handle them without failing.
type DecodeError struct {
	// Stage names the decoding step that failed: "base64" or "json".
	Stage string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("envelope decode failed at %s stage: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Encode serializes the payload to JSON and wraps it in base64.
// The resulting string is safe to store in a TEXT column regardless of what
// bytes the payload's nested strings contain.
func Encode(payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Decode unwraps an envelope into the given destination.
// An empty (or whitespace-only) envelope yields ErrNoResult. Malformed
// base64 or JSON yields a *DecodeError. Decode never panics on bad input.
func Decode(env string, into any) error {
	if strings.TrimSpace(env) == "" {
		return ErrNoResult
	}

	data, err := base64.StdEncoding.DecodeString(env)
	if err != nil {
		return &DecodeError{Stage: "base64", Err: err}
	}

	if err := json.Unmarshal(data, into); err != nil {
		return &DecodeError{Stage: "json", Err: err}
	}
	return nil
}

// ItemPayload is the wire shape of a Scan's result. A successful collection
// stores Posts; a failed one stores Error. Using one struct for both means
// readers need a single decoding path regardless of job outcome.
type ItemPayload struct {
	Posts []model.Item `json:"posts,omitempty"`
	Error string       `json:"error,omitempty"`
}

// VerdictPayload is the wire shape of a Report's classification, mirroring
// ItemPayload: Posts on success, Error on failure.
type VerdictPayload struct {
	Posts []model.Verdict `json:"posts,omitempty"`
	Error string          `json:"error,omitempty"`
}

// EncodeItems wraps an item list in the result payload shape and encodes it.
func EncodeItems(items []model.Item) (string, error) {
	return Encode(ItemPayload{Posts: items})
}

// DecodeItems decodes a Scan result envelope. It returns ErrNoResult for an
// empty envelope and *DecodeError for a malformed one.
func DecodeItems(env string) (ItemPayload, error) {
	var payload ItemPayload
	if err := Decode(env, &payload); err != nil {
		return ItemPayload{}, err
	}
	return payload, nil
}

// EncodeVerdicts wraps a verdict list in the classification payload shape
// and encodes it.
func EncodeVerdicts(verdicts []model.Verdict) (string, error) {
	return Encode(VerdictPayload{Posts: verdicts})
}

// DecodeVerdicts decodes a Report classification envelope.
func DecodeVerdicts(env string) (VerdictPayload, error) {
	var payload VerdictPayload
	if err := Decode(env, &payload); err != nil {
		return VerdictPayload{}, err
	}
	return payload, nil
}

// EncodeJobError encodes the structured error payload written by a failed
// background worker. Both pipelines use the same shape so that downstream
// renderers need only one decoding path.
func EncodeJobError(message string) string {
	// Marshal of a map[string]string cannot fail; encode directly.
	data, _ := json.Marshal(map[string]string{"error": message}) //nolint:errcheck // cannot fail for a string map
	return base64.StdEncoding.EncodeToString(data)
}

// EncodeBody base64-encodes a post body for embedding inside an item.
func EncodeBody(body string) string {
	return base64.StdEncoding.EncodeToString([]byte(body))
}

// DecodeBody decodes a base64-encoded post body.
func DecodeBody(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", &DecodeError{Stage: "base64", Err: err}
	}
	return string(data), nil
}
