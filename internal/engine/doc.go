// Package engine implements the job lifecycle: synchronous record creation,
// detached background execution, and the status state machine shared by
// collection and classification jobs.
//
// Both job kinds follow one shape. A creation call validates the request,
// persists a record with status "running", and returns it immediately; a
// background worker then does the slow work and writes the terminal status
// exactly once. The worker body is wrapped in a catch-all boundary because
// no caller is waiting to observe an uncaught fault — a job must never end
// without a terminal status.
package engine
