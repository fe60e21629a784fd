package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ynoir/obit-microscopy-core-technology/internal/domain"
)

func (s *Server) registerDatasetRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getDataset",
		Method:      http.MethodGet,
		Path:        "/api/v1/datasets/{id}",
		Summary:     "Get dataset",
		Description: "Returns a dataset by ID. Root datasets also list the IDs of the datasets linked to their file.",
		Tags:        []string{"Datasets"},
	}, s.handleGetDataset)
}

// DatasetResponse contains dataset data in API responses.
type DatasetResponse struct {
	ID             string            `json:"id" doc:"Dataset ID"`
	Code           string            `json:"code" doc:"Generated dataset code"`
	Type           string            `json:"type" doc:"Dataset type code"`
	FilePath       string            `json:"file_path" doc:"Path of the file in the incoming folder"`
	StoragePath    string            `json:"storage_path,omitempty" doc:"Path of the file in managed storage"`
	RootID         string            `json:"root_id,omitempty" doc:"Root dataset ID for linked datasets"`
	SampleID       string            `json:"sample_id,omitempty" doc:"Sample ID"`
	ExperimentID   string            `json:"experiment_id,omitempty" doc:"Experiment ID"`
	Properties     map[string]string `json:"properties" doc:"Property values by property code"`
	Channels       []domain.Channel  `json:"channels" doc:"Resolved channels"`
	Geometry       domain.Geometry   `json:"geometry" doc:"Plane count and extent of each plane axis"`
	LinkedDatasets []string          `json:"linked_datasets,omitempty" doc:"IDs of datasets sharing this file"`
	CreatedAt      time.Time         `json:"created_at" doc:"Registration time"`
	UpdatedAt      time.Time         `json:"updated_at" doc:"Last update time"`
}

// GetDatasetInput contains parameters for getting a dataset.
type GetDatasetInput struct {
	ID string `path:"id" doc:"Dataset ID"`
}

// DatasetOutput wraps the dataset response for Huma.
type DatasetOutput struct {
	Body DatasetResponse
}

func (s *Server) handleGetDataset(ctx context.Context, input *GetDatasetInput) (*DatasetOutput, error) {
	ds, err := s.store.Datasets.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	resp := toDatasetResponse(ds)
	if ds.IsRoot() {
		linked, err := s.store.ListLinkedDatasets(ctx, ds.ID)
		if err != nil {
			return nil, err
		}
		for _, l := range linked {
			resp.LinkedDatasets = append(resp.LinkedDatasets, l.ID)
		}
	}
	return &DatasetOutput{Body: resp}, nil
}

func toDatasetResponse(ds *domain.Dataset) DatasetResponse {
	channels := ds.Channels
	if channels == nil {
		channels = []domain.Channel{}
	}
	return DatasetResponse{
		ID:           ds.ID,
		Code:         ds.Code,
		Type:         ds.Type,
		FilePath:     ds.FilePath,
		StoragePath:  ds.StoragePath,
		RootID:       ds.RootID,
		SampleID:     ds.SampleID,
		ExperimentID: ds.ExperimentID,
		Properties:   properties(ds.Properties),
		Channels:     channels,
		Geometry:     ds.Geometry,
		CreatedAt:    ds.CreatedAt,
		UpdatedAt:    ds.UpdatedAt,
	}
}
