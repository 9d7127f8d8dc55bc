package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"xlmerge/internal/config"
	"xlmerge/internal/ledger"
	"xlmerge/internal/workbook"
)

func newTargetCommand(ctx *commandContext) *cobra.Command {
	targetCmd := &cobra.Command{
		Use:   "target",
		Short: "Consolidation workbook utilities",
	}
	targetCmd.AddCommand(newTargetInitCommand(ctx))
	return targetCmd
}

func newTargetInitCommand(ctx *commandContext) *cobra.Command {
	var targetPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create an empty consolidation workbook holding only the report sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.Paths.TargetWorkbook
			if strings.TrimSpace(targetPath) != "" {
				if path, err = config.ExpandPath(targetPath); err != nil {
					return fmt.Errorf("resolve target path: %w", err)
				}
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("create target directory: %w", err)
			}
			if err := initTarget(path, cfg.Consolidation.ReportSheet); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s with report sheet %q\n", path, cfg.Consolidation.ReportSheet)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Workbook to create (defaults to paths.target_workbook)")
	return cmd
}

func initTarget(path, reportSheet string) (err error) {
	if err := workbook.Create(path, reportSheet); err != nil {
		return err
	}
	book, err := workbook.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := book.Close(); err == nil {
			err = closeErr
		}
	}()
	if err := ledger.Ensure(book, reportSheet); err != nil {
		return err
	}
	return book.Save()
}
