package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nao1215/safarnama/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/safarnama.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a safarnama configuration file",
		Long: `Init writes a commented configuration file with every option and its
default value.

Examples:
  # Create safarnama.yaml in the current directory
  safarnama init

  # Start from a different site
  safarnama init --base-url https://example.com

  # Write to a specific path, overwriting an existing file
  safarnama init -o ~/.config/safarnama/config.yaml -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")
	cmd.Flags().String("base-url", "",
		"Site to crawl (default: "+config.DefaultSeedURL+")")

	return cmd
}

func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}
	baseURL, err := cmd.Flags().GetString("base-url")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := renderTemplate(baseURL)
	if err != nil {
		return err
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  - put LLM_API_KEY in .env if your endpoint needs one")
	fmt.Fprintln(out, "  - check the endpoint with \"safarnama test-llm\"")
	fmt.Fprintln(out, "  - start crawling with \"safarnama start\"")
	return nil
}

// renderTemplate returns the embedded template with base_url replaced
// when baseURL is set.
func renderTemplate(baseURL string) ([]byte, error) {
	content, err := configTemplate.ReadFile("templates/safarnama.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read config template: %w", err)
	}
	if baseURL == "" {
		return content, nil
	}

	probe := config.NewConfig()
	probe.SeedURL = baseURL
	if err := probe.Validate(); err != nil {
		return nil, err
	}

	old := "base_url: " + strconv.Quote(config.DefaultSeedURL)
	return []byte(strings.Replace(string(content), old, "base_url: "+strconv.Quote(baseURL), 1)), nil
}
