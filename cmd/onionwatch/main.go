// Package main provides the entry point for the onionwatch service.
//
// onionwatch monitors darknet marketplace listings over Tor and classifies
// collected posts with an external AI service. It runs as an HTTP API
// server; scans and reports are created through the API and processed by
// background jobs.
//
// Usage:
//
//	onionwatch serve
//	onionwatch export <report-id>
//
// See --help for all available options.
package main

// main is the entry point for onionwatch.
func main() {
	Execute()
}
