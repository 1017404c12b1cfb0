// Package cli holds the startup shared by the maintenance commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Keranthos/softeng-platform/internal/config"
	"github.com/Keranthos/softeng-platform/internal/logging"
)

// Init loads configuration and installs the run logger.
func Init(tool string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if _, err := logging.Setup(tool, cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return cfg, nil
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

var exit = os.Exit

// Fatal logs err, closes closers in order and exits with status 1. Deferred
// calls do not run on exit, so open resources are passed here.
func Fatal(msg string, err error, closers ...io.Closer) {
	slog.Error(msg, "error", err)
	for _, c := range closers {
		if cerr := c.Close(); cerr != nil {
			slog.Error("failed to close", "error", cerr)
		}
	}
	exit(1)
}
