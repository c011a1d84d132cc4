// Package report renders completed classification jobs as GitHub-flavored
// markdown for sharing outside the service. Rendering follows the same
// rule as the HTTP snapshots: a malformed stored payload becomes a
// displayable state in the document, never an error that aborts export.
package report
