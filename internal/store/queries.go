package store

import (
	"context"
	"slices"

	"github.com/ynoir/obit-microscopy-core-technology/internal/domain"
)

// GetExperimentByIdentifier returns the experiment with a repository identifier.
func (s *Store) GetExperimentByIdentifier(ctx context.Context, identifier string) (*domain.Experiment, error) {
	return s.Experiments.GetByIndex(ctx, "identifier", identifier)
}

// ListSamplesByExperiment returns the samples of an experiment, oldest first.
func (s *Store) ListSamplesByExperiment(ctx context.Context, experimentID string) ([]*domain.Sample, error) {
	samples, err := s.Samples.ListByIndex(ctx, "experiment", experimentID)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(samples, func(a, b *domain.Sample) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return samples, nil
}

// ListDatasetsBySample returns the datasets of a sample, oldest first.
func (s *Store) ListDatasetsBySample(ctx context.Context, sampleID string) ([]*domain.Dataset, error) {
	datasets, err := s.Datasets.ListByIndex(ctx, "sample", sampleID)
	if err != nil {
		return nil, err
	}
	sortDatasets(datasets)
	return datasets, nil
}

// ListLinkedDatasets returns the datasets sharing the file of a root dataset.
func (s *Store) ListLinkedDatasets(ctx context.Context, rootID string) ([]*domain.Dataset, error) {
	datasets, err := s.Datasets.ListByIndex(ctx, "root", rootID)
	if err != nil {
		return nil, err
	}
	sortDatasets(datasets)
	return datasets, nil
}

func sortDatasets(datasets []*domain.Dataset) {
	slices.SortStableFunc(datasets, func(a, b *domain.Dataset) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}
