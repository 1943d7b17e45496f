// Package process runs external tools as child processes and streams their
// output line by line to callers.
//
// Both yt-dlp and ffmpeg clients share this executor; tests substitute their
// own Executor to replay captured output without spawning anything.
package process
