package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/safarnama/internal/backend"
	"github.com/spf13/cobra"
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>...",
		Short: "Query the healthiest registered search backend",
		Long: `Search probes the registered SearxNG instances in priority order and sends
the query to the first healthy one. Instances that fail the probe or the
query are put into cooldown.

Examples:
  safarnama search golang crawler
  safarnama search --raw "site:go.dev generics"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSearchCmd,
	}

	cmd.Flags().Bool("raw", false, "Print the raw JSON answer")
	cmd.Flags().IntP("limit", "n", 10, "Maximum number of results to print (0 for all)")

	return cmd
}

func runSearchCmd(cmd *cobra.Command, args []string) (err error) {
	raw, err := cmd.Flags().GetBool("raw")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, a.Close()) }()

	reg, err := a.registry()
	if err != nil {
		return err
	}
	client, err := a.httpClient(a.cfg.Search.Timeout.Duration())
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context(), a.logger)
	defer cancel()

	sel := backend.NewSelector(reg, client,
		backend.WithMaxRounds(a.cfg.Search.Retries),
		backend.WithTimeout(a.cfg.Search.Timeout.Duration()),
		backend.WithLogger(a.logger))

	query := strings.Join(args, " ")
	result, err := sel.SelectAndQuery(ctx, query)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if raw {
		_, err := fmt.Fprintln(out, string(result.Body))
		return err
	}

	resp, err := result.Decode()
	if err != nil {
		return err
	}
	printSearchResponse(out, result.InstanceURL, resp, limit)
	return nil
}

func printSearchResponse(w io.Writer, instance string, resp *backend.SearchResponse, limit int) {
	fmt.Fprintf(w, "Results from %s\n\n", instance)
	if len(resp.Results) == 0 {
		fmt.Fprintln(w, "No results.")
	}
	for i, r := range resp.Results {
		if limit > 0 && i >= limit {
			break
		}
		fmt.Fprintf(w, "%d. %s\n   %s\n", i+1, r.Title, r.URL)
		if r.Content != "" {
			fmt.Fprintf(w, "   %s\n", strings.TrimSpace(r.Content))
		}
		fmt.Fprintln(w)
	}
	if len(resp.Suggestions) > 0 {
		fmt.Fprintf(w, "Suggestions: %s\n", strings.Join(resp.Suggestions, ", "))
	}
}
