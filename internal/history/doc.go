// Package history keeps a SQLite ledger of pipeline runs: what was requested,
// how far it got, and whether the artifact was collected.
//
// The ledger is informational. A failed write is logged by callers and never
// fails a run.
package history
