package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nao1215/safarnama/internal/backend"
	"github.com/nao1215/safarnama/internal/model"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"
)

// NewBackendsCmd creates the backends command and its subcommands.
func NewBackendsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backends",
		Short: "Manage the search backend registry",
		Long: `Backends manages the SearxNG instances used by "safarnama search".

Each instance has a priority (lower is preferred) derived from its uptime
and an optional cooldown set when it fails.`,
	}

	cmd.AddCommand(newBackendsListCmd())
	cmd.AddCommand(newBackendsAddCmd())
	cmd.AddCommand(newBackendsImportCmd())
	cmd.AddCommand(newBackendsResetCmd())

	return cmd
}

func newBackendsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered instances by priority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, a.Close()) }()

			reg, err := a.registry()
			if err != nil {
				return err
			}
			instances, err := reg.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(instances) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No backends registered. Run \"safarnama backends import\" first.")
				return nil
			}

			now := reg.Now()
			tbl := table.New("URL", "Priority", "Uptime", "Version", "Country", "Cooldown").
				WithWriter(cmd.OutOrStdout())
			for _, inst := range instances {
				tbl.AddRow(inst.URL, inst.Priority, formatUptime(inst.Uptime),
					orDash(inst.Version), orDash(inst.Country), formatCooldown(inst, now))
			}
			tbl.Print()
			return nil
		},
	}
	return cmd
}

func newBackendsAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <url>",
		Short: "Register an instance by URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, a.Close()) }()

			reg, err := a.registry()
			if err != nil {
				return err
			}
			added, err := reg.Add(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if added {
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is already registered\n", args[0])
			}
			return nil
		},
	}
}

func newBackendsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [source]",
		Short: "Import instances from a searx.space instances.json",
		Long: `Import reads an instances.json document from a URL or a file and
registers every instance with its metadata. Without a source the
search.instances_url setting is used. Priorities are recomputed from the
imported uptimes.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, a.Close()) }()

			source := a.cfg.Search.InstancesURL
			if len(args) == 1 {
				source = args[0]
			}

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

			n, err := backend.NewImporter(reg, client, a.logger).Import(ctx, source)
			if err != nil {
				return err
			}
			if err := reg.RefreshPriorities(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d instances from %s\n", n, source)
			return nil
		},
	}
}

func newBackendsResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear every cooldown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, a.Close()) }()

			reg, err := a.registry()
			if err != nil {
				return err
			}
			n, err := reg.ResetCooldowns(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cooldowns\n", n)
			return nil
		},
	}
}

func formatUptime(uptime *float64) string {
	if uptime == nil {
		return "-"
	}
	return strconv.FormatFloat(*uptime, 'f', 2, 64) + "%"
}

func formatCooldown(inst model.BackendInstance, now time.Time) string {
	if inst.SleepUntil.IsZero() || !inst.SleepUntil.After(now) {
		return "-"
	}
	return inst.SleepUntil.Sub(now).Round(time.Second).String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
