package logger

import (
	"io"
	"os"

	"golang.org/x/exp/slog"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// New returns the logger for env: colored text for local runs, JSON for
// dev (debug) and prod (info).
func New(env string) *slog.Logger {
	return NewWriter(env, os.Stdout)
}

// NewWriter is New writing to out.
func NewWriter(env string, out io.Writer) *slog.Logger {
	switch env {
	case envDev:
		return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return setupPrettySlog(out)
	}
}

func setupPrettySlog(out io.Writer) *slog.Logger {
	opts := PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{Level: slog.LevelDebug},
	}
	return slog.New(opts.NewPrettyHandler(out))
}

// Discard returns a logger that drops everything, for CLI runs that must
// keep stdout clean.
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}
