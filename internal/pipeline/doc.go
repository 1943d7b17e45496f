// Package pipeline turns an accepted download request into a finished
// artifact.
//
// An Orchestrator owns one run at a time per call to Run: it downloads with
// yt-dlp, folds the tool output into a two-phase progress model, then
// extracts audio, renames, or trims with ffmpeg depending on the Plan. Every
// run emits zero or more progress events followed by exactly one terminal
// event (completion or error), after which the stream is closed.
//
// The state machine is exposed as the pure Transition function so that the
// ordering rules can be tested without spawning processes.
package pipeline
