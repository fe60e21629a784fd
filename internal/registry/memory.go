package registry

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/ynoir/obit-microscopy-core-technology/internal/domain"
	"github.com/ynoir/obit-microscopy-core-technology/internal/errors"
	"github.com/ynoir/obit-microscopy-core-technology/internal/id"
	"github.com/ynoir/obit-microscopy-core-technology/internal/imaging"
)

// Move records a MoveFile call.
type Move struct {
	Path      string
	DatasetID string
}

// MemoryTransaction is an in-memory Transaction. It backs dry runs, where a
// delivery is validated without touching the store or the incoming files.
type MemoryTransaction struct {
	mu          sync.Mutex
	experiments map[string]*domain.Experiment
	samples     []*domain.Sample
	datasets    []*domain.Dataset
	moves       []Move
}

var _ Transaction = (*MemoryTransaction)(nil)

// NewMemoryTransaction creates an empty in-memory transaction.
func NewMemoryTransaction() *MemoryTransaction {
	return &MemoryTransaction{experiments: make(map[string]*domain.Experiment)}
}

// GetExperimentForUpdate implements Transaction.
func (m *MemoryTransaction) GetExperimentForUpdate(_ context.Context, identifier string) (*domain.Experiment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exp, ok := m.experiments[identifier]
	if !ok {
		return nil, errors.NotFoundf("experiment %s not found", identifier)
	}
	return exp, nil
}

// CreateNewExperiment implements Transaction.
func (m *MemoryTransaction) CreateNewExperiment(_ context.Context, identifier, typeCode string) (*domain.Experiment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.experiments[identifier]; ok {
		return nil, errors.EntityCreationf("experiment %s already exists", identifier)
	}
	exp := domain.NewExperiment(identifier, typeCode)
	exp.ID = id.MustGenerate(id.PrefixExperiment)
	exp.InitTimestamps()
	m.experiments[identifier] = exp
	return exp, nil
}

// UpdateExperiment implements Transaction.
func (m *MemoryTransaction) UpdateExperiment(_ context.Context, exp *domain.Experiment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.experiments[exp.Identifier]; !ok {
		return errors.NotFoundf("experiment %s not found", exp.Identifier)
	}
	m.experiments[exp.Identifier] = exp
	return nil
}

// CreateNewSampleWithGeneratedCode implements Transaction.
func (m *MemoryTransaction) CreateNewSampleWithGeneratedCode(_ context.Context, space, typeCode string) (*domain.Sample, error) {
	code, err := id.Code(strings.ToUpper(id.PrefixSample))
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s := &domain.Sample{
		Properties: domain.Properties{},
		Code:       code,
		Identifier: "/" + space + "/" + code,
		Space:      space,
		Type:       typeCode,
	}
	s.ID = id.MustGenerate(id.PrefixSample)
	s.InitTimestamps()
	m.samples = append(m.samples, s)
	return s, nil
}

// UpdateSample implements Transaction.
func (m *MemoryTransaction) UpdateSample(_ context.Context, sample *domain.Sample) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.Contains(m.samples, sample) {
		return errors.NotFoundf("sample %s not found", sample.Code)
	}
	return nil
}

// CreateNewImageDataSet implements Transaction.
func (m *MemoryTransaction) CreateNewImageDataSet(_ context.Context, cfg imaging.DatasetConfig, path string) (*domain.Dataset, error) {
	ds, err := BuildDataset(cfg, path)
	if err != nil {
		return nil, err
	}
	return m.add(ds)
}

// CreateNewImageDataSetFromDataSet implements Transaction.
func (m *MemoryTransaction) CreateNewImageDataSetFromDataSet(_ context.Context, cfg imaging.DatasetConfig, root *domain.Dataset) (*domain.Dataset, error) {
	ds, err := BuildDataset(cfg, root.FilePath)
	if err != nil {
		return nil, err
	}
	ds.RootID = root.ID
	ds.StoragePath = root.StoragePath
	return m.add(ds)
}

func (m *MemoryTransaction) add(ds *domain.Dataset) (*domain.Dataset, error) {
	code, err := id.Code(strings.ToUpper(id.PrefixDataset))
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ds.Code = code
	ds.ID = id.MustGenerate(id.PrefixDataset)
	ds.InitTimestamps()
	m.datasets = append(m.datasets, ds)
	return ds, nil
}

// UpdateDataset implements Transaction.
func (m *MemoryTransaction) UpdateDataset(_ context.Context, ds *domain.Dataset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.Contains(m.datasets, ds) {
		return errors.NotFoundf("dataset %s not found", ds.Code)
	}
	return nil
}

// MoveFile records the move; no file is touched.
func (m *MemoryTransaction) MoveFile(_ context.Context, path string, ds *domain.Dataset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.moves = append(m.moves, Move{Path: path, DatasetID: ds.ID})
	return nil
}

// Experiments returns the experiments sorted by identifier.
func (m *MemoryTransaction) Experiments() []*domain.Experiment {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*domain.Experiment, 0, len(m.experiments))
	for _, exp := range m.experiments {
		out = append(out, exp)
	}
	slices.SortFunc(out, func(a, b *domain.Experiment) int {
		return strings.Compare(a.Identifier, b.Identifier)
	})
	return out
}

// Samples returns the samples in creation order.
func (m *MemoryTransaction) Samples() []*domain.Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.samples)
}

// Datasets returns the datasets in creation order.
func (m *MemoryTransaction) Datasets() []*domain.Dataset {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.datasets)
}

// Moves returns the recorded moves in call order.
func (m *MemoryTransaction) Moves() []Move {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.moves)
}
