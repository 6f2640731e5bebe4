package main

import (
	"errors"
	"fmt"

	"github.com/nao1215/safarnama/internal/model"
	"github.com/nao1215/safarnama/internal/sitemap"
	"github.com/spf13/cobra"
)

// NewSitemapCmd creates the sitemap command.
func NewSitemapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitemap",
		Short: "Write a sitemap of every visited page",
		Long: `Sitemap writes an XML sitemap of every url the frontier marks visited,
across all runs. "safarnama start" writes one for the pages of its own run;
use this command to rebuild it after an interrupted crawl.`,
		Args: cobra.NoArgs,
		RunE: runSitemapCmd,
	}

	cmd.Flags().StringP("output", "o", "", "Sitemap file (default: sitemap_file setting)")

	return cmd
}

func runSitemapCmd(cmd *cobra.Command, _ []string) (err error) {
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, a.Close()) }()

	if output == "" {
		output = a.cfg.SitemapFile
	}

	db, err := a.openDB()
	if err != nil {
		return err
	}
	records, err := db.ListURLs(cmd.Context(), model.StatusVisited)
	if err != nil {
		return err
	}

	urls := make([]string, 0, len(records))
	for _, r := range records {
		urls = append(urls, r.URL)
	}
	if err := sitemap.WriteFile(output, urls); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Sitemap with %d urls written to %s\n", len(urls), output)
	return nil
}
