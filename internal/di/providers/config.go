// Package providers contains dependency injection providers for the dropbox.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/ynoir/obit-microscopy-core-technology/internal/config"
	"github.com/ynoir/obit-microscopy-core-technology/internal/logger"
)

// ArgsKey names the command-line arguments value in the container.
const ArgsKey = "args"

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	args := do.MustInvokeNamed[[]string](i, ArgsKey)
	return config.LoadConfig(args)
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log, err := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
		File:        cfg.Logger.File,
	})
	if err != nil {
		return nil, err
	}

	log.Info("Starting microscopy dropbox",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"store_path", cfg.Store.Path,
		"dropbox_path", cfg.Dropbox.Path,
		"incoming", cfg.Dropbox.Incoming,
		"dry_run", cfg.Dropbox.DryRun,
	)

	return log, nil
}
