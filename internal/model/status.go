package model

// Status represents the lifecycle state of a job record.
// Every job starts as StatusRunning and transitions exactly once to either
// StatusCompleted or StatusFailed. Terminal states are never left.
//
// Design decision: We use string-typed constants rather than iota because
// the status is stored verbatim in a TEXT column and returned verbatim in
// API responses. A string type removes two conversion layers and makes
// database rows readable during debugging.
type Status string

const (
	// StatusRunning is the sole initial state. A running job has an empty
	// result payload; the background worker has not finished yet.
	StatusRunning Status = "running"

	// StatusCompleted indicates the background worker finished and wrote
	// a successful result payload.
	StatusCompleted Status = "completed"

	// StatusFailed indicates the background worker finished and wrote a
	// structured error payload.
	StatusFailed Status = "failed"
)

// IsTerminal reports whether the status is a terminal state.
// No transition ever leaves a terminal state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsValid reports whether s is one of the known status values.
// Used to validate status filters coming from the HTTP layer.
func (s Status) IsValid() bool {
	switch s {
	case StatusRunning, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// String returns the status as a plain string.
func (s Status) String() string {
	return string(s)
}
