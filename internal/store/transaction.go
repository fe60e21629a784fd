package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/ynoir/obit-microscopy-core-technology/internal/domain"
	"github.com/ynoir/obit-microscopy-core-technology/internal/errors"
	"github.com/ynoir/obit-microscopy-core-technology/internal/id"
	"github.com/ynoir/obit-microscopy-core-technology/internal/imaging"
	"github.com/ynoir/obit-microscopy-core-technology/internal/registry"
)

// move records a file moved into storage so that it can be undone.
type move struct {
	from       string
	to         string
	createdDir string // dataset folder created by the move, removed on undo
}

// Transaction is the repository write handle of one registration run. All
// entity writes go into a single badger transaction; files are moved into
// storage immediately and moved back if the transaction is rolled back.
//
// Datasets created in the run are staged and written once each on Commit, so
// the create, property, move and sample updates of a dataset cost a single
// badger write.
type Transaction struct {
	store  *Store
	logger *slog.Logger

	mu     sync.Mutex
	txn    *badger.Txn
	moves  []move
	staged map[string]*domain.Dataset
	order  []string
	done   bool
}

var _ registry.Transaction = (*Transaction)(nil)

// Begin starts a read-write transaction.
func (s *Store) Begin() *Transaction {
	logger := s.logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Transaction{
		store:  s,
		logger: logger,
		txn:    s.db.NewTransaction(true),
		staged: make(map[string]*domain.Dataset),
	}
}

// Commit persists every entity written in the transaction. If the commit
// fails, moved files are put back.
func (t *Transaction) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return ErrTxnClosed
	}
	t.done = true

	if err := t.flushDatasets(); err != nil {
		t.txn.Discard()
		t.undoMoves()
		return errors.Wrap(err, errors.CodeRegistration, "commit registration")
	}
	if err := t.txn.Commit(); err != nil {
		t.undoMoves()
		return errors.Wrap(err, errors.CodeRegistration, "commit registration")
	}
	t.logger.Info("transaction committed", "datasets", len(t.order), "moved_files", len(t.moves))
	t.moves = nil
	t.clearStaged()
	return nil
}

// flushDatasets writes every staged dataset in creation order.
func (t *Transaction) flushDatasets() error {
	for _, dsID := range t.order {
		ds := t.staged[dsID]
		if err := t.store.Datasets.create(t.txn, ds.ID, ds); err != nil {
			return fmt.Errorf("create dataset %s for %s: %w", ds.Code, ds.FilePath, err)
		}
	}
	return nil
}

func (t *Transaction) clearStaged() {
	t.staged = nil
	t.order = nil
}

// Rollback discards every entity written in the transaction and moves the
// registered files back to where they came from. Calling Rollback after
// Commit is a no-op.
func (t *Transaction) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return nil
	}
	t.done = true

	t.txn.Discard()
	err := t.undoMoves()
	t.logger.Info("transaction rolled back", "restored_files", len(t.moves))
	t.moves = nil
	t.clearStaged()
	return err
}

// undoMoves moves files back in reverse order. Failures are collected and
// the remaining moves are still attempted.
func (t *Transaction) undoMoves() error {
	var errs []error
	for _, m := range slices.Backward(t.moves) {
		if err := os.Rename(m.to, m.from); err != nil {
			errs = append(errs, fmt.Errorf("restore %s: %w", m.from, err))
			continue
		}
		if m.createdDir != "" {
			if err := os.Remove(m.createdDir); err != nil && !os.IsNotExist(err) {
				errs = append(errs, fmt.Errorf("remove %s: %w", m.createdDir, err))
			}
		}
	}
	if len(errs) > 0 {
		t.logger.Error("failed to restore moved files", "error", errors.Join(errs...))
		return errors.Wrap(errors.Join(errs...), errors.CodeResource, "restore moved files")
	}
	return nil
}

func (t *Transaction) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.done {
		return ErrTxnClosed
	}
	return nil
}

// GetExperimentForUpdate implements registry.Transaction.
func (t *Transaction) GetExperimentForUpdate(ctx context.Context, identifier string) (*domain.Experiment, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	return t.store.Experiments.getByIndex(t.txn, "identifier", identifier)
}

// CreateNewExperiment implements registry.Transaction.
func (t *Transaction) CreateNewExperiment(ctx context.Context, identifier, typeCode string) (*domain.Experiment, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.check(ctx); err != nil {
		return nil, err
	}

	exp := domain.NewExperiment(identifier, typeCode)
	expID, err := id.Generate(id.PrefixExperiment)
	if err != nil {
		return nil, err
	}
	exp.ID = expID
	exp.InitTimestamps()

	if err := t.store.Experiments.create(t.txn, exp.ID, exp); err != nil {
		return nil, fmt.Errorf("create experiment %s: %w", identifier, err)
	}
	return exp, nil
}

// UpdateExperiment implements registry.Transaction.
func (t *Transaction) UpdateExperiment(ctx context.Context, exp *domain.Experiment) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.check(ctx); err != nil {
		return err
	}
	return t.store.Experiments.update(t.txn, exp.ID, exp)
}

// CreateNewSampleWithGeneratedCode implements registry.Transaction.
func (t *Transaction) CreateNewSampleWithGeneratedCode(ctx context.Context, space, typeCode string) (*domain.Sample, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.check(ctx); err != nil {
		return nil, err
	}

	code, err := id.Code(strings.ToUpper(id.PrefixSample))
	if err != nil {
		return nil, err
	}
	sampleID, err := id.Generate(id.PrefixSample)
	if err != nil {
		return nil, err
	}

	sample := &domain.Sample{
		Properties: domain.Properties{},
		Code:       code,
		Identifier: "/" + space + "/" + code,
		Space:      space,
		Type:       typeCode,
	}
	sample.ID = sampleID
	sample.InitTimestamps()

	if err := t.store.Samples.create(t.txn, sample.ID, sample); err != nil {
		return nil, fmt.Errorf("create sample in space %s: %w", space, err)
	}
	return sample, nil
}

// UpdateSample implements registry.Transaction.
func (t *Transaction) UpdateSample(ctx context.Context, sample *domain.Sample) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.check(ctx); err != nil {
		return err
	}
	return t.store.Samples.update(t.txn, sample.ID, sample)
}

// CreateNewImageDataSet implements registry.Transaction.
func (t *Transaction) CreateNewImageDataSet(ctx context.Context, cfg imaging.DatasetConfig, path string) (*domain.Dataset, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.check(ctx); err != nil {
		return nil, err
	}

	ds, err := registry.BuildDataset(cfg, path)
	if err != nil {
		return nil, err
	}
	return ds, t.createDataset(ds)
}

// CreateNewImageDataSetFromDataSet implements registry.Transaction. The
// image planes are read from the root's stored file when it has been moved.
func (t *Transaction) CreateNewImageDataSetFromDataSet(ctx context.Context, cfg imaging.DatasetConfig, root *domain.Dataset) (*domain.Dataset, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.check(ctx); err != nil {
		return nil, err
	}

	source := root.FilePath
	if root.StoragePath != "" {
		source = root.StoragePath
	}
	ds, err := registry.BuildDataset(cfg, source)
	if err != nil {
		return nil, err
	}
	ds.FilePath = root.FilePath
	ds.StoragePath = root.StoragePath
	ds.RootID = root.ID
	return ds, t.createDataset(ds)
}

func (t *Transaction) createDataset(ds *domain.Dataset) error {
	code, err := id.Code(strings.ToUpper(id.PrefixDataset))
	if err != nil {
		return err
	}
	dsID, err := id.Generate(id.PrefixDataset)
	if err != nil {
		return err
	}
	ds.Code = code
	ds.ID = dsID
	ds.InitTimestamps()

	t.staged[ds.ID] = ds
	t.order = append(t.order, ds.ID)
	return nil
}

// saveDataset replaces a staged dataset, or updates one registered by an
// earlier run in place.
func (t *Transaction) saveDataset(ds *domain.Dataset) error {
	if _, ok := t.staged[ds.ID]; ok {
		t.staged[ds.ID] = ds
		return nil
	}
	return t.store.Datasets.update(t.txn, ds.ID, ds)
}

// UpdateDataset implements registry.Transaction.
func (t *Transaction) UpdateDataset(ctx context.Context, ds *domain.Dataset) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.check(ctx); err != nil {
		return err
	}
	return t.saveDataset(ds)
}

// MoveFile implements registry.Transaction. The file or folder is renamed to
// storage/<dataset code>/<base name> and the dataset's storage path updated.
func (t *Transaction) MoveFile(ctx context.Context, path string, ds *domain.Dataset) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.check(ctx); err != nil {
		return err
	}

	if _, err := os.Stat(path); err != nil {
		return errors.Wrapf(err, errors.CodeResource, "stat %s", path)
	}

	dir := filepath.Join(t.store.storageRoot, ds.Code)
	created := ""
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		created = dir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, errors.CodeResource, "create storage folder %s", dir)
	}

	dest := filepath.Join(dir, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		if created != "" {
			_ = os.Remove(created)
		}
		return errors.Wrapf(err, errors.CodeResource, "move %s to %s", path, dest)
	}
	t.moves = append(t.moves, move{from: path, to: dest, createdDir: created})

	ds.StoragePath = dest
	return t.saveDataset(ds)
}
