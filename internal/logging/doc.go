// Package logging assembles structured slog loggers used across ytclip.
//
// It owns the console and JSON handlers, output routing to stderr and the log
// file, and context-aware helpers that tag lines with run IDs, stages, and
// correlation IDs. NewNop gives tests and optional wiring a logger that
// never fails.
package logging
