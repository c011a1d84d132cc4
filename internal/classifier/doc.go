// Package classifier implements the classification strategy: submitting an
// extracted post to an external text-classification service and returning a
// label plus a score distribution.
//
// Failures here are per-item data, not pipeline faults. Classify always
// returns a Verdict; when the service call or response parsing fails, the
// Verdict carries the error message instead of a label.
package classifier
