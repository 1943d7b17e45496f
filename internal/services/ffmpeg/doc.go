// Package ffmpeg wraps the ffmpeg command line for the two post-download
// operations: audio extraction to mp3 and trimming with a per-container
// re-encode preset.
//
// Trim runs ffmpeg with "-progress pipe:1" so stdout carries key=value
// progress records; diagnostics stay on stderr.
package ffmpeg
