// Package ytdlp wraps the yt-dlp command line: argument construction, format
// selection per output container, and streaming of its --newline progress
// output to a caller-supplied callback.
package ytdlp
