// Package artifact owns the per-run working directories under the configured
// work_dir and the one-shot delivery of finished outputs.
//
// Each run gets <work_dir>/<run_id>/ holding an input slot (input.<ext>, the
// extension picked by the downloader) and an output slot (output.<format>).
// Delivery claims the output with an advisory file lock so that a second
// concurrent request is refused, streams it, and deletes it. The Janitor
// removes run directories that nobody collected.
package artifact
