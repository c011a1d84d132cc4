// Package server exposes the HTTP surface: thin transport glue over the
// job engine. Handlers validate input, translate engine errors into status
// codes, and render job snapshots; all real work happens in the engine's
// background workers.
package server
