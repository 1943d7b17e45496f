// Package eventstream writes progress events to a long-lived HTTP response as
// server-sent-event records ("data: <json>\n\n"), flushing after each one.
package eventstream
