// Package log provides logging with automatic sanitization of sensitive
// values, built on top of the standard slog package.
//
// The service handles two kinds of secrets that must never reach log
// output: classification API keys carried in report requests, and proxy
// credentials that may be embedded in user-supplied endpoints. The
// SecureHandler masks attribute values whose key names or value shapes
// look like secrets before the record reaches the underlying handler.
//
// Onion addresses deliberately stay visible: scan targets are the main
// thing operators need to see in the logs.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Info("report created",
//	    "api_key", "sk-ant-...",   // masked
//	    "target", "http://example.onion", // kept
//	)
package log
