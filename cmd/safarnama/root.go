package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for safarnama.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "safarnama",
		Short: "Website crawler with LLM summaries and search backend selection",
		Long: `safarnama crawls one website under depth and policy constraints and
summarizes every HTML page through an OpenAI-compatible chat completions
endpoint. The crawl frontier is persistent, so an interrupted crawl resumes
where it stopped.

It also keeps a pool of SearxNG instances and sends queries to the healthiest
one, putting failing instances into cooldown.

Configuration is read from --config, ./safarnama.yaml or
$XDG_CONFIG_HOME/safarnama/config.yaml. Run "safarnama init" to create one.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "", "Configuration file path")

	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewStartCmd())
	cmd.AddCommand(NewSearchCmd())
	cmd.AddCommand(NewBackendsCmd())
	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewSitemapCmd())
	cmd.AddCommand(NewTestLLMCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
