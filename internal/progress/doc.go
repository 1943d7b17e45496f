// Package progress turns raw yt-dlp and ffmpeg output lines into phase
// percentages.
//
// ParseDownloadLine and ParseTranscodeLine are pure: one line in, at most one
// Event out, unrecognized lines ignored. Tracker holds the per-run state that
// composes download sub-phases and fragments into a single percentage and
// suppresses any value that does not strictly advance.
package progress
