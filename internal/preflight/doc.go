// Package preflight checks that the directories ytclip writes to are usable
// and that the external tools it drives are installed. Both the daemon's
// status endpoint and the check command use it.
package preflight
