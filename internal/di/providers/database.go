package providers

import (
	"github.com/samber/do/v2"

	"github.com/ynoir/obit-microscopy-core-technology/internal/config"
	"github.com/ynoir/obit-microscopy-core-technology/internal/logger"
	"github.com/ynoir/obit-microscopy-core-technology/internal/store"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the repository store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	db, err := store.New(cfg.Store.Path, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Store initialized", "path", cfg.Store.Path, "storage", db.StorageRoot())

	return &StoreHandle{Store: db}, nil
}
