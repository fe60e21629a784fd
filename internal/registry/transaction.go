// Package registry registers experiments, samples and image datasets in the
// repository through a Transaction.
package registry

import (
	"context"

	"github.com/ynoir/obit-microscopy-core-technology/internal/domain"
	"github.com/ynoir/obit-microscopy-core-technology/internal/imaging"
)

// Transaction is the repository write handle of one registration run.
// Entities returned by the create methods are already persisted; property
// changes made on them afterwards are persisted by the matching Update call.
type Transaction interface {

	// GetExperimentForUpdate returns the experiment with the given identifier.
	// It returns an error matching errors.ErrNotFound when there is none.
	GetExperimentForUpdate(ctx context.Context, identifier string) (*domain.Experiment, error)

	// CreateNewExperiment creates an experiment with the given identifier and type.
	CreateNewExperiment(ctx context.Context, identifier, typeCode string) (*domain.Experiment, error)

	// UpdateExperiment persists the properties of an experiment.
	UpdateExperiment(ctx context.Context, exp *domain.Experiment) error

	// CreateNewSampleWithGeneratedCode creates a sample in a space with a
	// repository-generated code.
	CreateNewSampleWithGeneratedCode(ctx context.Context, space, typeCode string) (*domain.Sample, error)

	// UpdateSample persists the properties and experiment of a sample.
	UpdateSample(ctx context.Context, sample *domain.Sample) error

	// CreateNewImageDataSet creates a root image dataset bound to path, a file
	// or a folder. Channels and images are built from cfg.
	CreateNewImageDataSet(ctx context.Context, cfg imaging.DatasetConfig, path string) (*domain.Dataset, error)

	// CreateNewImageDataSetFromDataSet creates a dataset sharing the file of root.
	CreateNewImageDataSetFromDataSet(ctx context.Context, cfg imaging.DatasetConfig, root *domain.Dataset) (*domain.Dataset, error)

	// UpdateDataset persists the properties and sample of a dataset.
	UpdateDataset(ctx context.Context, ds *domain.Dataset) error

	// MoveFile moves path into the storage of ds.
	MoveFile(ctx context.Context, path string, ds *domain.Dataset) error
}
