package main

import (
	"fmt"
	"io"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"xlmerge/internal/session"
	"xlmerge/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Merge the backlog, then every spreadsheet dropped into the watched folder",
		Long: `Process every file already in the watched folder, then follow new arrivals
until interrupted. Spreadsheets are merged into the target workbook and moved
to the processed folder; other files go to the not-applicable folder.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			observer := watch.Observers{printObserver(cmd.OutOrStdout()), watch.LogObserver(logger)}
			s, err := session.New(cfg, logger, observer, session.WithOnce(once))
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Start(signalCtx); err != nil {
				return err
			}
			return s.Wait()
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Process the files already in the folder and exit")
	return cmd
}

// printObserver writes each observer message as one line.
func printObserver(out io.Writer) watch.Observer {
	var mu sync.Mutex
	return watch.ObserverFunc(func(message string) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(out, message)
	})
}
