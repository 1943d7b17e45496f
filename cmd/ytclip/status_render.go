package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"ytclip/internal/api"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

var statusStyles = map[statusKind]struct{ label, color string }{
	statusInfo:  {"INFO", ansiBlue},
	statusOK:    {"OK", ansiGreen},
	statusWarn:  {"WARN", ansiYellow},
	statusError: {"ERROR", ansiRed},
}

const statusLabelWidth = 18

// renderStatusLine formats "  Label:   [KIND] message", colored by kind.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	style := statusStyles[kind]
	badge := "[" + style.label + "]"
	if message != "" {
		badge += " " + message
	}
	line := fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", badge)
	if colorize && style.color != "" {
		return style.color + line + ansiReset
	}
	return line
}

func renderSectionHeader(title string, colorize bool) []string {
	line := "== " + strings.TrimSpace(title) + " =="
	rule := strings.Repeat("-", len(line))
	if colorize {
		return []string{ansiBlue + line + ansiReset, ansiBlue + rule + ansiReset}
	}
	return []string{line, rule}
}

// shouldColorize reports whether writer is an interactive terminal.
func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func renderDaemonStatus(status api.DaemonStatus, colorize bool) []string {
	var lines []string
	lines = append(lines, renderSectionHeader("Service", colorize)...)
	if status.Running {
		lines = append(lines, renderStatusLine("Service", statusOK, fmt.Sprintf("running (pid %d)", status.PID), colorize))
	} else {
		lines = append(lines, renderStatusLine("Service", statusError, "not running", colorize))
	}
	capacity := "unbounded"
	if status.MaxConcurrentRuns > 0 {
		capacity = fmt.Sprintf("%d", status.MaxConcurrentRuns)
	}
	lines = append(lines, renderStatusLine("Active runs", statusInfo, fmt.Sprintf("%d of %s", status.ActiveRuns, capacity), colorize))
	lines = append(lines, renderStatusLine("Work directory", statusInfo, status.WorkDir, colorize))
	if status.HistoryPath != "" {
		lines = append(lines, renderStatusLine("History", statusInfo, status.HistoryPath, colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Checks", colorize)...)
	for _, dir := range status.Directories {
		kind := statusOK
		if !dir.Passed {
			kind = statusError
		}
		lines = append(lines, renderStatusLine(dir.Name, kind, dir.Detail, colorize))
	}
	for _, dep := range status.Dependencies {
		kind, message := statusOK, dep.Version
		switch {
		case dep.Available:
			if message == "" {
				message = dep.Command
			}
		case dep.Optional:
			kind, message = statusWarn, "missing (optional)"
		default:
			kind, message = statusError, "missing"
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, message, colorize))
	}
	return lines
}
