package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/ynoir/obit-microscopy-core-technology/internal/config"
	"github.com/ynoir/obit-microscopy-core-technology/internal/dropbox"
	"github.com/ynoir/obit-microscopy-core-technology/internal/logger"
	"github.com/ynoir/obit-microscopy-core-technology/internal/metareader"
	"github.com/ynoir/obit-microscopy-core-technology/internal/pipeline"
	"github.com/ynoir/obit-microscopy-core-technology/internal/watcher"
)

// ProvideReaders provides the metadata reader registry.
func ProvideReaders(i do.Injector) (*metareader.Registry, error) {
	log := do.MustInvoke[*logger.Logger](i)

	readers := metareader.NewRegistry(log.Logger)
	log.Debug("Metadata readers registered", "extensions", readers.Extensions())
	return readers, nil
}

// ProvideProcessor provides the registration processor. In dry-run mode it
// registers into memory and never touches the store.
func ProvideProcessor(i do.Injector) (*dropbox.Processor, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	readers := do.MustInvoke[*metareader.Registry](i)

	types := pipeline.Types{
		Experiment: cfg.Dropbox.ExperimentType,
		Sample:     cfg.Dropbox.SampleType,
	}

	if cfg.Dropbox.DryRun {
		log.Info("Dry run: registrations are validated but not persisted")
		return dropbox.NewDryRunProcessor(readers, types, log.Logger), nil
	}

	storeHandle := do.MustInvoke[*StoreHandle](i)
	return dropbox.NewProcessor(storeHandle.Store, readers, types, log.Logger), nil
}

// DropboxServiceHandle wraps the marker-driven dropbox service with shutdown capability.
type DropboxServiceHandle struct {
	*dropbox.Service
	cancel context.CancelFunc
	done   chan struct{}
}

// Shutdown implements do.Shutdownable. It waits for a running registration
// to finish.
func (h *DropboxServiceHandle) Shutdown() error {
	h.cancel()
	<-h.done
	return nil
}

// ProvideDropboxService provides the dropbox service watching the configured root.
func ProvideDropboxService(i do.Injector) (*DropboxServiceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	processor := do.MustInvoke[*dropbox.Processor](i)

	svc := dropbox.NewService(processor, cfg.Dropbox.Path, watcher.Options{
		MarkerPrefix: cfg.Dropbox.MarkerPrefix,
		SettleDelay:  cfg.Dropbox.SettleDelay,
	}, log.Logger)

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		if err := svc.Run(ctx); err != nil {
			log.Error("Dropbox service error", "error", err)
		}
	}()

	log.Info("Watching dropbox", "path", cfg.Dropbox.Path)

	return &DropboxServiceHandle{
		Service: svc,
		cancel:  cancel,
		done:    done,
	}, nil
}
