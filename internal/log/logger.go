package log

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultMaxFileSizeMB is the size at which the log file is rotated.
const DefaultMaxFileSizeMB = 10

// Options configures the application logger.
type Options struct {
	// Verbose writes Debug and above to Stderr. Otherwise Info and above.
	Verbose bool

	// Quiet suppresses console output entirely.
	Quiet bool

	// Save additionally writes every record to File.
	Save bool

	// File is the log file path used when Save is set.
	File string

	// Stderr is the console writer. Defaults to os.Stderr.
	Stderr io.Writer
}

// New builds the application logger described by opts. Every handler is
// wrapped in a SecureHandler.
//
// The returned closer releases the log file and must be called before
// exit. It is a no-op when Save is false.
func New(opts Options) (*slog.Logger, io.Closer) {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}

	handlers := make([]slog.Handler, 0, 2)
	if !opts.Quiet {
		w := opts.Stderr
		if w == nil {
			w = os.Stderr
		}
		handlers = append(handlers, slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	}

	var closer io.Closer = nopCloser{}
	if opts.Save && opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename: opts.File,
			MaxSize:  DefaultMaxFileSizeMB,
		}
		closer = rotator
		handlers = append(handlers, slog.NewTextHandler(rotator, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	switch len(handlers) {
	case 0:
		return slog.New(NewSecureHandler(slog.NewTextHandler(io.Discard, nil))), closer
	case 1:
		return slog.New(NewSecureHandler(handlers[0])), closer
	default:
		return slog.New(NewSecureHandler(fanout(handlers))), closer
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// fanout forwards each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithAttrs(attrs)
	}
	return next
}

func (f fanout) WithGroup(name string) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithGroup(name)
	}
	return next
}
