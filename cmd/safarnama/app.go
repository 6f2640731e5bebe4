package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nao1215/safarnama/internal/backend"
	"github.com/nao1215/safarnama/internal/config"
	"github.com/nao1215/safarnama/internal/database"
	"github.com/nao1215/safarnama/internal/log"
	"github.com/nao1215/safarnama/internal/transport"
	"github.com/spf13/cobra"
)

// app holds what the subcommands share: the loaded configuration, the
// logger and, once opened, the database.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *database.CrawlDB

	logCloser io.Closer
}

// newApp loads the configuration selected by the --config flag and sets
// up logging. The caller must Close the app.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(getStringFlag(cmd, "config"))
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	logger, closer := log.New(log.Options{
		Verbose: getVerboseFlag(cmd) || cfg.Verbose,
		Save:    cfg.Save,
		File:    cfg.LogFile,
		Stderr:  cmd.ErrOrStderr(),
	})
	slog.SetDefault(logger)

	return &app{
		cfg:       cfg,
		logger:    logger,
		logCloser: closer,
	}, nil
}

// openDB opens the configured database.
func (a *app) openDB() (*database.CrawlDB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := database.Open(a.cfg.DatabaseDSN(), database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.logger.Debug("database opened", "dialect", db.Dialect(), "path", db.Path())
	a.db = db
	return db, nil
}

// httpClient builds an HTTP client with the configured User-Agent and
// proxy.
func (a *app) httpClient(timeout time.Duration) (*http.Client, error) {
	tc, err := transport.NewClient(
		transport.WithTimeout(timeout),
		transport.WithUserAgent(a.cfg.UserAgent),
		transport.WithProxy(a.cfg.Proxy),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}
	return tc.NewHTTPClient(), nil
}

// streamingClient builds a client for long transfers. It has no overall
// timeout; phase bounds each connection phase and the caller bounds reads.
func (a *app) streamingClient(phase time.Duration) (*http.Client, error) {
	tc, err := transport.NewClient(
		transport.WithTimeout(0),
		transport.WithPhaseTimeouts(transport.Timeouts{
			Dial:           phase,
			TLSHandshake:   phase,
			ResponseHeader: phase,
			IdleConn:       phase,
		}),
		transport.WithUserAgent(a.cfg.UserAgent),
		transport.WithProxy(a.cfg.Proxy),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create download client: %w", err)
	}
	return tc.NewHTTPClient(), nil
}

// registry opens the database and wraps it in a backend registry.
func (a *app) registry() (*backend.Registry, error) {
	db, err := a.openDB()
	if err != nil {
		return nil, err
	}
	return backend.NewRegistry(db), nil
}

// Close releases the database and the log file.
func (a *app) Close() error {
	var errs []error
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	errs = append(errs, a.logCloser.Close())
	return errors.Join(errs...)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getStringFlag retrieves a string flag from the command or its parent.
func getStringFlag(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetString(name)
		if err != nil {
			return ""
		}
	}
	return v
}
