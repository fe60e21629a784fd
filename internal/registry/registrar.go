package registry

import (
	"context"
	"log/slog"
	"time"

	"github.com/ynoir/obit-microscopy-core-technology/internal/domain"
	"github.com/ynoir/obit-microscopy-core-technology/internal/errors"
	"github.com/ynoir/obit-microscopy-core-technology/internal/imaging"
)

// Repository code length limits.
const (
	// MaxExperimentCodeLength is the longest identifier accepted for an experiment.
	MaxExperimentCodeLength = 60

	// maxStandaloneBaseLength leaves room for "_" and the 18 digit timestamp token.
	maxStandaloneBaseLength = 41
)

// ExperimentRequest describes an experiment to get or create.
type ExperimentRequest struct {
	Identifier  string
	Name        string
	Description string
	Type        string
}

// SampleRequest describes a sample to create under an experiment.
type SampleRequest struct {
	Experiment  *domain.Experiment
	Name        string
	Description string
	Type        string
}

// DatasetProperties are the per-series properties stored on an image dataset.
type DatasetProperties struct {
	Name     string
	Metadata string
}

// Registrar creates and updates repository entities through a Transaction.
// Experiments are looked up before they are created; samples and datasets
// are always created.
type Registrar struct {
	tx     Transaction
	logger *slog.Logger
	clock  *tokenClock
}

// NewRegistrar creates a registrar writing through tx.
func NewRegistrar(tx Transaction, logger *slog.Logger) *Registrar {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registrar{
		tx:     tx,
		logger: logger,
		clock:  newTokenClock(nil),
	}
}

// SetClock replaces the wall clock used for standalone experiment codes.
func (r *Registrar) SetClock(now func() time.Time) {
	r.clock = newTokenClock(now)
}

// GetOrCreateExperiment returns the experiment with the (truncated) request
// identifier, creating it when it does not exist. The name is always set.
// A non-empty description is always set; an empty one only initializes a
// description that is missing or empty.
func (r *Registrar) GetOrCreateExperiment(ctx context.Context, req ExperimentRequest) (*domain.Experiment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	identifier := truncate(req.Identifier, MaxExperimentCodeLength)

	exp, err := r.tx.GetExperimentForUpdate(ctx, identifier)
	switch {
	case err == nil:
		r.logger.Info("registering to existing experiment", "identifier", identifier)
	case errors.Is(err, errors.ErrNotFound):
		r.logger.Info("experiment does not exist, creating", "identifier", identifier)
		exp, err = r.tx.CreateNewExperiment(ctx, identifier, req.Type)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeEntityCreation, "could not create experiment %s", identifier)
		}
		r.logger.Info("experiment created", "identifier", identifier, "experiment_id", exp.ID)
	default:
		return nil, errors.Wrapf(err, errors.CodeRegistration, "get experiment %s", identifier)
	}

	exp.SetProperty(domain.PropExperimentName, req.Name)
	if req.Description != "" {
		exp.SetProperty(domain.PropExperimentDescription, req.Description)
	} else if exp.Properties.Value(domain.PropExperimentDescription) == "" {
		exp.SetProperty(domain.PropExperimentDescription, "")
	}

	if err := r.tx.UpdateExperiment(ctx, exp); err != nil {
		return nil, errors.Wrapf(err, errors.CodeRegistration, "update experiment %s", identifier)
	}
	return exp, nil
}

// CreateStandaloneExperiment always creates a new experiment. The identifier
// is truncated and suffixed with a unique timestamp token, so identical
// requests in quick succession still produce distinct experiments.
func (r *Registrar) CreateStandaloneExperiment(ctx context.Context, req ExperimentRequest) (*domain.Experiment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	identifier := truncate(req.Identifier, maxStandaloneBaseLength) + "_" + r.clock.Token()
	r.logger.Info("registering experiment", "identifier", identifier)

	exp, err := r.tx.CreateNewExperiment(ctx, identifier, req.Type)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeEntityCreation, "could not create experiment %s", identifier)
	}

	exp.SetProperty(domain.PropExperimentName, req.Name)
	if req.Description != "" {
		exp.SetProperty(domain.PropExperimentDescription, req.Description)
	}
	if err := r.tx.UpdateExperiment(ctx, exp); err != nil {
		return nil, errors.Wrapf(err, errors.CodeRegistration, "update experiment %s", identifier)
	}

	r.logger.Info("experiment created", "identifier", identifier, "experiment_id", exp.ID)
	return exp, nil
}

// CreateSample creates a sample in the space of the request experiment and
// attaches it to that experiment.
func (r *Registrar) CreateSample(ctx context.Context, req SampleRequest) (*domain.Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	space, ok := domain.SpaceCode(req.Experiment.Identifier)
	if !ok {
		return nil, errors.EntityCreationf("experiment identifier %q has no space", req.Experiment.Identifier)
	}
	r.logger.Info("creating sample with generated code", "space", space)

	sample, err := r.tx.CreateNewSampleWithGeneratedCode(ctx, space, req.Type)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeEntityCreation, "could not create sample in space %s", space)
	}

	sample.SetProperty(domain.PropSampleName, req.Name)
	sample.SetProperty(domain.PropSampleDescription, req.Description)
	sample.SetExperiment(req.Experiment)

	if err := r.tx.UpdateSample(ctx, sample); err != nil {
		return nil, errors.Wrapf(err, errors.CodeRegistration, "update sample %s", sample.Code)
	}
	return sample, nil
}

// CreateRootDataset creates the dataset that owns path. Call it once per file
// or folder, then MoveFile.
func (r *Registrar) CreateRootDataset(ctx context.Context, cfg imaging.DatasetConfig, path string, props DatasetProperties) (*domain.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.logger.Info("creating image dataset", "path", path, "series", cfg.Selection().String())
	ds, err := r.tx.CreateNewImageDataSet(ctx, cfg, path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeRegistration, "create image dataset for %s", path)
	}
	return ds, r.setDatasetProperties(ctx, ds, props)
}

// CreateLinkedDataset creates a dataset for another series of the file owned
// by root. The file is not ingested again.
func (r *Registrar) CreateLinkedDataset(ctx context.Context, cfg imaging.DatasetConfig, root *domain.Dataset, props DatasetProperties) (*domain.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.logger.Info("creating image dataset from dataset", "root_dataset", root.Code, "series", cfg.Selection().String())
	ds, err := r.tx.CreateNewImageDataSetFromDataSet(ctx, cfg, root)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeRegistration, "create image dataset from %s", root.Code)
	}
	return ds, r.setDatasetProperties(ctx, ds, props)
}

func (r *Registrar) setDatasetProperties(ctx context.Context, ds *domain.Dataset, props DatasetProperties) error {
	r.logger.Debug("series metadata", "dataset", ds.Code, "xml", props.Metadata)
	ds.SetProperty(domain.PropContainerMetadata, props.Metadata)
	ds.SetProperty(domain.PropContainerName, props.Name)
	if err := r.tx.UpdateDataset(ctx, ds); err != nil {
		return errors.Wrapf(err, errors.CodeRegistration, "update dataset %s", ds.Code)
	}
	return nil
}

// MoveFile moves path into the storage of ds.
func (r *Registrar) MoveFile(ctx context.Context, path string, ds *domain.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.tx.MoveFile(ctx, path, ds); err != nil {
		return errors.Wrapf(err, errors.CodeRegistration, "move %s into dataset %s", path, ds.Code)
	}
	r.logger.Info("file moved", "path", path, "dataset", ds.Code)
	return nil
}

// AttachSample sets the sample of a dataset.
func (r *Registrar) AttachSample(ctx context.Context, ds *domain.Dataset, sample *domain.Sample) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ds.SetSample(sample)
	if err := r.tx.UpdateDataset(ctx, ds); err != nil {
		return errors.Wrapf(err, errors.CodeRegistration, "attach sample %s to dataset %s", sample.Code, ds.Code)
	}
	return nil
}

// truncate cuts s to at most n bytes.
func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
