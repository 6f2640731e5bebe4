package main

import (
	"errors"
	"fmt"

	"github.com/nao1215/safarnama/internal/summarize"
	"github.com/spf13/cobra"
)

// NewTestLLMCmd creates the test-llm command.
func NewTestLLMCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test-llm",
		Short: "Check that the configured LLM endpoint answers",
		Long: `Test-llm sends a short prompt to the configured chat completions endpoint
and prints the reply. Use it to verify llm.endpoint, llm.model and the API
key before starting a crawl.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, a.Close()) }()

			s, err := summarize.New(a.cfg.LLM,
				summarize.WithLogger(a.logger),
				summarize.WithUserAgent(a.cfg.UserAgent))
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context(), a.logger)
			defer cancel()

			reply, err := s.Check(ctx)
			if err != nil {
				return fmt.Errorf("llm check failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "LLM %s at %s answered:\n%s\n", a.cfg.LLM.Model, a.cfg.LLM.Endpoint, reply)
			return nil
		},
	}
}
