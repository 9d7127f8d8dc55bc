package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"xlmerge/internal/journal"
	"xlmerge/internal/ledger"
	"xlmerge/internal/workbook"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show the report sheet of the target workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			book, err := workbook.Open(cfg.Paths.TargetWorkbook)
			if err != nil {
				return err
			}
			defer book.Close()

			entries, err := ledger.Entries(book, cfg.Consolidation.ReportSheet)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "Report is empty")
				return nil
			}
			total := len(entries)
			if limit > 0 && len(entries) > limit {
				entries = entries[len(entries)-limit:]
			}

			headers := append([]string{"Row"}, ledger.Header...)
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					strconv.Itoa(e.Row),
					e.FileName,
					e.SheetName,
					e.Timestamp,
					e.Status,
					e.Duplicate,
					e.Message,
				})
			}
			fmt.Fprintln(out, renderTable(headers, rows, 0))
			counts.Fprintf(out, "%d of %d rows\n", len(entries), total)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show only the last N rows")
	return cmd
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently handled files from the arrival journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Journal.Enabled {
				return fmt.Errorf("journal is disabled (set journal.enabled = true)")
			}
			store, err := journal.Open(cfg.Journal.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No files handled yet")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					e.FileName,
					e.Outcome,
					strconv.Itoa(e.SheetsCopied),
					yesNo(e.Duplicate),
					yesNo(e.Moved),
					e.Message,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Handled", "File", "Outcome", "Sheets", "Duplicate", "Moved", "Message"},
				rows,
				3,
			))
			fmt.Fprintln(out, formatStats(stats))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show (0 for all)")
	return cmd
}

// counts groups digits in totals printed to the operator.
var counts = message.NewPrinter(language.English)

func formatStats(stats map[string]int) string {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, counts.Sprintf("%s=%d", k, stats[k]))
	}
	return "Totals: " + strings.Join(parts, " ")
}
