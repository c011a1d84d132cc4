// Package database provides SQLite-backed storage for job records.
// It holds the two record kinds of the system — collection jobs (scans) and
// classification jobs (reports) — and exposes the create/read/update/filter
// operations the job lifecycle engine and the HTTP views consume.
package database
