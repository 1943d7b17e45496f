package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"ytclip/internal/history"
	"ytclip/internal/timecode"
)

var stateTitle = cases.Title(language.English)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !cfg.History.Enabled {
				fmt.Fprintln(out, "Run history is disabled ([history] enabled = false)")
				return nil
			}
			store, err := history.Open(cfg.HistoryPath())
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderHistoryTable(records))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	return cmd
}

func renderHistoryTable(records []history.Record) string {
	headers := []string{"Run", "Started", "State", "Format", "Range", "Size", "Took", "Delivered", "Source"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		size := "-"
		if rec.OutputBytes > 0 {
			size = humanize.Bytes(uint64(rec.OutputBytes))
		}
		took := "-"
		if rec.Finished() {
			took = rec.Duration().Round(100 * time.Millisecond).String()
		}
		state := stateTitle.String(strings.ReplaceAll(rec.State, "_", " "))
		if rec.ErrorMessage != "" {
			state += " (" + rec.ErrorMessage + ")"
		}
		rows = append(rows, []string{
			shortRunID(rec.RunID),
			humanize.Time(rec.CreatedAt),
			state,
			rec.Format,
			formatRange(rec),
			size,
			took,
			yesNo(rec.Delivered()),
			rec.SourceURL,
		})
	}
	return renderTable(headers, rows, aligns)
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatRange(rec history.Record) string {
	if rec.RangeEnd == nil {
		return "full"
	}
	return timecode.Format(rec.RangeStart) + "-" + timecode.Format(*rec.RangeEnd)
}
