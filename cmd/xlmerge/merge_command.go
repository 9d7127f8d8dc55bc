package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"xlmerge/internal/arrival"
	"xlmerge/internal/session"
	"xlmerge/internal/watch"
)

func newMergeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "merge FILE...",
		Short: "Run the given files through the dispatcher once",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			observer := watch.Observers{printObserver(out), watch.LogObserver(logger)}
			results, err := session.Merge(cmd.Context(), cfg, logger, observer, args)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(results))
			failed := 0
			for _, r := range results {
				rows = append(rows, []string{r.Path, string(r.Outcome)})
				if !mergeSucceeded(r.Outcome) {
					failed++
				}
			}
			fmt.Fprintln(out, renderTable([]string{"File", "Outcome"}, rows))
			if failed > 0 {
				return fmt.Errorf("%d of %d files were not merged or not moved", failed, len(results))
			}
			return nil
		},
	}
}

func mergeSucceeded(outcome arrival.Outcome) bool {
	switch outcome {
	case arrival.OutcomeFailed, arrival.OutcomeUnmoved, arrival.OutcomePermissionDenied, arrival.OutcomeVanished:
		return false
	default:
		return true
	}
}
