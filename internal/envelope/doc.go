// Package envelope implements the result envelope codec: a binary-safe text
// representation (base64 over UTF-8 JSON) used to store structured job
// payloads in TEXT columns. Both pipelines persist their output through this
// codec, and every reader decodes through it.
package envelope
