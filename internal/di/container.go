// Package di provides dependency injection configuration for the microscopy dropbox.
package di

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/ynoir/obit-microscopy-core-technology/internal/config"
	"github.com/ynoir/obit-microscopy-core-technology/internal/di/providers"
	"github.com/ynoir/obit-microscopy-core-technology/internal/dropbox"
	"github.com/ynoir/obit-microscopy-core-technology/internal/logger"
	"github.com/ynoir/obit-microscopy-core-technology/internal/metareader"
)

// NewContainer creates and configures the DI container with all providers.
// args are the command-line arguments without the program name.
func NewContainer(args []string) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideNamedValue(injector, providers.ArgsKey, args)
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Repository
	do.Provide(injector, providers.ProvideStore)

	// Registration
	do.Provide(injector, providers.ProvideReaders)
	do.Provide(injector, providers.ProvideProcessor)
	do.Provide(injector, providers.ProvideDropboxService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes the services for the configured mode. A one-shot
// run only needs the processor; otherwise the dropbox service and, when
// enabled, the HTTP server are started.
func Bootstrap(injector *do.RootScope) error {
	cfg, err := do.Invoke[*config.Config](injector)
	if err != nil {
		return err
	}
	if _, err := do.Invoke[*logger.Logger](injector); err != nil {
		return err
	}
	if !cfg.Dropbox.DryRun || (!cfg.OneShot() && cfg.Server.Enabled) {
		if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
			return err
		}
	}
	if _, err := do.Invoke[*metareader.Registry](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*dropbox.Processor](injector); err != nil {
		return err
	}

	if cfg.OneShot() {
		return nil
	}

	if cfg.Server.Enabled {
		if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
			return err
		}
	}
	if _, err := do.Invoke[*providers.DropboxServiceHandle](injector); err != nil {
		return err
	}
	return nil
}

// RunOnce registers the configured incoming folder.
func RunOnce(ctx context.Context, injector *do.RootScope) (*dropbox.Result, error) {
	cfg := do.MustInvoke[*config.Config](injector)
	processor := do.MustInvoke[*dropbox.Processor](injector)
	return processor.Run(ctx, cfg.Dropbox.Incoming)
}
