// Command ytclip runs the clip download service and offers local tooling
// around it: one-off fetches, run history, dependency checks and config
// management.
package main
