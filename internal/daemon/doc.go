// Package daemon runs the long-lived ytclip service.
//
// It wires configuration, the artifact workspace, the pipeline orchestrator,
// and the optional run history into a single lifecycle guarded by a flock so
// that only one instance owns a work directory. The HTTP API (download
// streaming, one-shot file delivery, status, history and video info) is
// served from here, along with the background janitor and retention loops.
//
// Pipeline logic lives in internal/pipeline; this package only admits
// requests, adapts them to HTTP, and keeps the process healthy.
package daemon
