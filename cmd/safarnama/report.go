package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nao1215/safarnama/internal/model"
	"github.com/nao1215/safarnama/internal/report"
	"github.com/spf13/cobra"
)

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a report of the crawl frontier",
		Long: `Report reads the frontier from the database and prints every url with
its status, summary and tags.

Examples:
  safarnama report
  safarnama report --status visited --format markdown -o visited.md
  safarnama report --format json`,
		Args: cobra.NoArgs,
		RunE: runReportCmd,
	}

	cmd.Flags().String("format", string(report.FormatText), "Output format: text, json or markdown")
	cmd.Flags().StringP("output", "o", "", "Write the report to this file instead of stdout")
	cmd.Flags().StringSlice("status", nil, "Only include urls with these statuses (to_visit, visited, ignored, downloaded)")

	return cmd
}

func runReportCmd(cmd *cobra.Command, _ []string) (err error) {
	formatName, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(formatName)
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	statusNames, err := cmd.Flags().GetStringSlice("status")
	if err != nil {
		return err
	}
	statuses := make([]model.Status, 0, len(statusNames))
	for _, name := range statusNames {
		s, err := model.ParseStatus(name)
		if err != nil {
			return err
		}
		statuses = append(statuses, s)
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, a.Close()) }()

	db, err := a.openDB()
	if err != nil {
		return err
	}
	rep, err := report.Build(cmd.Context(), db, a.cfg.SeedURL, statuses...)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if output != "" {
		if dir := filepath.Dir(output); dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create report directory: %w", err)
			}
		}
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // path given by the user
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer func() { err = errors.Join(err, f.Close()) }()
		w = f
	}

	writer, err := report.NewWriter(format, w)
	if err != nil {
		return err
	}
	if _, err := writer.Write(rep); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if output != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", output)
	}
	return nil
}
