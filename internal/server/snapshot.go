package server

import (
	"errors"
	"time"

	"github.com/onionwatch/onionwatch/internal/envelope"
	"github.com/onionwatch/onionwatch/internal/model"
)

// scanSnapshot is the wire representation of a collection job. The stored
// envelope is decoded server-side so readers never handle raw payloads;
// when the envelope cannot be decoded, DecodeError carries a displayable
// message instead of the posts. One shape covers running, completed,
// failed, and corrupted records, so clients need a single rendering path.
type scanSnapshot struct {
	ID         int64        `json:"id"`
	Name       string       `json:"name"`
	Target     string       `json:"target"`
	ProxyHTTP  string       `json:"proxy_http"`
	ProxyHTTPS string       `json:"proxy_https"`
	CreatedAt  time.Time    `json:"created_at"`
	Status     model.Status `json:"status"`

	// Posts holds the decoded items of a completed scan.
	Posts []model.Item `json:"posts,omitempty"`

	// Error holds the job's error payload when it failed.
	Error string `json:"error,omitempty"`

	// DecodeError is set when the stored envelope is malformed.
	DecodeError string `json:"decode_error,omitempty"`
}

// newScanSnapshot decodes a scan record into its wire shape.
func newScanSnapshot(scan *model.Scan) scanSnapshot {
	snap := scanSnapshot{
		ID:         scan.ID,
		Name:       scan.Name,
		Target:     scan.Target,
		ProxyHTTP:  scan.ProxyHTTP,
		ProxyHTTPS: scan.ProxyHTTPS,
		CreatedAt:  scan.CreatedAt,
		Status:     scan.Status,
	}

	payload, err := envelope.DecodeItems(scan.Result)
	switch {
	case err == nil:
		snap.Posts = payload.Posts
		snap.Error = payload.Error
	case errors.Is(err, envelope.ErrNoResult):
		// Still running, nothing to show yet.
	default:
		snap.DecodeError = err.Error()
	}
	return snap
}

// reportSnapshot is the wire representation of a classification job,
// mirroring scanSnapshot's single rendering path.
type reportSnapshot struct {
	ID        int64        `json:"id"`
	ScanID    int64        `json:"scan_id"`
	Name      string       `json:"name"`
	CreatedAt time.Time    `json:"created_at"`
	Status    model.Status `json:"status"`

	// Verdicts holds the decoded classifications of a completed report.
	Verdicts []model.Verdict `json:"verdicts,omitempty"`

	// Error holds the job's error payload when it failed.
	Error string `json:"error,omitempty"`

	// DecodeError is set when the stored envelope is malformed.
	DecodeError string `json:"decode_error,omitempty"`
}

// newReportSnapshot decodes a report record into its wire shape.
func newReportSnapshot(report *model.Report) reportSnapshot {
	snap := reportSnapshot{
		ID:        report.ID,
		ScanID:    report.ScanID,
		Name:      report.Name,
		CreatedAt: report.CreatedAt,
		Status:    report.Status,
	}

	payload, err := envelope.DecodeVerdicts(report.Classification)
	switch {
	case err == nil:
		snap.Verdicts = payload.Posts
		snap.Error = payload.Error
	case errors.Is(err, envelope.ErrNoResult):
	default:
		snap.DecodeError = err.Error()
	}
	return snap
}
