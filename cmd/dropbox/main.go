// Package main provides the entry point for the microscopy dropbox.
//
// With -incoming (or INCOMING_PATH) it registers that folder once and exits
// with a non-zero status on failure. Otherwise it watches DROPBOX_PATH for
// marker files and serves the inspection API until SIGINT or SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/ynoir/obit-microscopy-core-technology/internal/config"
	"github.com/ynoir/obit-microscopy-core-technology/internal/di"
	"github.com/ynoir/obit-microscopy-core-technology/internal/logger"
)

func main() {
	// Create DI container
	injector := di.NewContainer(os.Args[1:])

	// Bootstrap all services
	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap dropbox: %v\n", err)
		os.Exit(1)
	}

	log := do.MustInvoke[*logger.Logger](injector)
	cfg := do.MustInvoke[*config.Config](injector)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exitCode := 0
	if cfg.OneShot() {
		result, err := di.RunOnce(ctx, injector)
		if err != nil {
			log.Error("Registration failed", "incoming", cfg.Dropbox.Incoming, "error", err)
			exitCode = 1
		} else {
			log.Info("Registration succeeded",
				"run_id", result.RunID,
				"manifests", len(result.Manifests),
				"elapsed", result.Elapsed,
			)
		}
	} else {
		// Wait for shutdown signal
		<-ctx.Done()
		log.Info("Shutting down dropbox gracefully...")
	}

	// The DI container shuts services down in reverse dependency order
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}

	if err := log.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close log file: %v\n", err)
	}
	os.Exit(exitCode)
}
