package model

import "time"

// Scan is a collection job: one fetch of a marketplace listing plus the
// detail page of every extracted item, executed by a background worker.
//
// The Result column holds an opaque envelope (see internal/envelope) and is
// empty while Status is StatusRunning. Once the status is terminal, Result
// always holds either the encoded item list or an encoded error payload.
type Scan struct {
	// ID is the numeric identifier assigned by the database at insert time.
	ID int64

	// Name is a human-assigned label. It is not unique; list filtering
	// matches it by substring.
	Name string

	// Target is the listing URL to collect, typically a .onion address.
	Target string

	// ProxyHTTP is the proxy endpoint used for plain HTTP requests,
	// e.g. "socks5h://127.0.0.1:9050".
	ProxyHTTP string

	// ProxyHTTPS is the proxy endpoint used for HTTPS requests.
	// Usually identical to ProxyHTTP when scanning through Tor.
	ProxyHTTPS string

	// CreatedAt is the record creation timestamp (UTC).
	CreatedAt time.Time

	// Status is the job lifecycle state.
	Status Status

	// Result is the envelope-encoded payload, empty until the job reaches
	// a terminal state.
	Result string
}

// Report is a classification job, logically a child of exactly one Scan.
// Its background worker decodes the owning Scan's items, classifies each
// one, and writes the aggregated verdicts.
type Report struct {
	// ID is the numeric identifier assigned by the database at insert time.
	ID int64

	// ScanID references the owning Scan. The Scan must exist when the
	// Report is created; it is not re-checked afterwards.
	ScanID int64

	// Name is copied from the owning Scan at creation time. It is
	// denormalized on purpose and never re-synced.
	Name string

	// CreatedAt is the record creation timestamp (UTC).
	CreatedAt time.Time

	// Status is the job lifecycle state.
	Status Status

	// Classification is the envelope-encoded verdict list, empty until
	// the job reaches a terminal state.
	Classification string
}
