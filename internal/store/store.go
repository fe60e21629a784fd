// Package store persists registered experiments, samples and datasets in
// Badger and manages the storage folder that registered files are moved into.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"

	"github.com/ynoir/obit-microscopy-core-technology/internal/domain"
)

// Layout of the store root.
const (
	dbDir      = "db"
	storageDir = "storage"
)

// Key prefixes.
const (
	experimentPrefix = "exp:"
	samplePrefix     = "smp:"
	datasetPrefix    = "ds:"
)

// Store wraps a Badger database instance and the managed storage folder.
type Store struct {
	db          *badger.DB
	logger      *slog.Logger
	storageRoot string

	// Generic entities
	Experiments *Entity[domain.Experiment]
	Samples     *Entity[domain.Sample]
	Datasets    *Entity[domain.Dataset]
}

// New opens (or creates) the store rooted at root: the database lives in
// root/db and registered files are moved below root/storage.
func New(root string, logger *slog.Logger) (*Store, error) {
	storageRoot := filepath.Join(root, storageDir)
	if err := os.MkdirAll(storageRoot, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage folder: %w", err)
	}

	opts := badger.DefaultOptions(filepath.Join(root, dbDir))
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	store := &Store{
		db:          db,
		logger:      logger,
		storageRoot: storageRoot,
	}

	store.initExperiments()
	store.initSamples()
	store.initDatasets()

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", root)
	}

	return store, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// StorageRoot returns the folder registered files are moved into.
func (s *Store) StorageRoot() string {
	return s.storageRoot
}

// Ping verifies that the database accepts reads.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(experimentPrefix))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// initExperiments indexes experiments by their unique repository identifier.
func (s *Store) initExperiments() {
	s.Experiments = NewEntity[domain.Experiment](s, experimentPrefix).
		WithIndex("identifier", func(e *domain.Experiment) []string {
			return []string{e.Identifier}
		})
}

// initSamples indexes samples by code and by experiment.
func (s *Store) initSamples() {
	s.Samples = NewEntity[domain.Sample](s, samplePrefix).
		WithIndex("code", func(smp *domain.Sample) []string {
			return []string{smp.Code}
		}).
		WithMultiIndex("experiment", func(smp *domain.Sample) []string {
			return nonEmpty(smp.ExperimentID)
		})
}

// initDatasets indexes datasets by code, sample and root dataset.
func (s *Store) initDatasets() {
	s.Datasets = NewEntity[domain.Dataset](s, datasetPrefix).
		WithIndex("code", func(ds *domain.Dataset) []string {
			return []string{ds.Code}
		}).
		WithMultiIndex("sample", func(ds *domain.Dataset) []string {
			return nonEmpty(ds.SampleID)
		}).
		WithMultiIndex("root", func(ds *domain.Dataset) []string {
			return nonEmpty(ds.RootID)
		})
}

func nonEmpty(v string) []string {
	if v == "" {
		return nil
	}
	return []string{v}
}
