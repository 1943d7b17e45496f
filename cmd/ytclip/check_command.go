package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ytclip/internal/deps"
	"ytclip/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify directories and external tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := preflight.RunAll(cmd.Context(), cfg)
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			var lines []string
			lines = append(lines, renderSectionHeader("Directories", colorize)...)
			for _, dir := range report.Directories {
				kind := statusOK
				if !dir.Passed {
					kind = statusError
				}
				lines = append(lines, renderStatusLine(dir.Name, kind, dir.Detail, colorize))
			}
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Tools", colorize)...)
			fmt.Fprintln(out, strings.Join(lines, "\n"))
			fmt.Fprintln(out, renderDependencyTable(report.Tools))

			if !report.Ready() {
				return fmt.Errorf("preflight failed: %d required tool(s) missing or directories unusable", len(deps.MissingRequired(report.Tools)))
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}
}

func renderDependencyTable(statuses []deps.Status) string {
	headers := []string{"Tool", "Command", "Required", "Status", "Version"}
	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		state := "available"
		if !s.Available {
			state = "missing"
			if s.Detail != "" {
				state += ": " + s.Detail
			}
		}
		rows = append(rows, []string{s.Name, s.Command, yesNo(!s.Optional), state, s.Version})
	}
	return renderTable(headers, rows, nil)
}
