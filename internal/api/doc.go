// Package api defines the JSON payloads served by the HTTP API and consumed by
// the CLI, plus converters from internal models.
//
// Field names use camelCase to match the download endpoint's request body
// (videoUrl, startTime). Timestamps are RFC3339 with milliseconds; time
// ranges are rendered with the same M:SS / H:MM:SS codec clients submit.
package api
