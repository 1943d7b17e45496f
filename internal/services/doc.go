// Package services defines shared utilities consumed by the pipeline and the
// external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper, and ClientMessage which
//     reduces any pipeline failure to the one message a client is shown.
//
// Tool wrappers live in subpackages (process, ytdlp, ffmpeg, youtube) so they
// can be stubbed independently in tests.
package services
