package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ynoir/obit-microscopy-core-technology/internal/domain"
)

func (s *Server) registerSampleRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getSample",
		Method:      http.MethodGet,
		Path:        "/api/v1/samples/{id}",
		Summary:     "Get sample",
		Description: "Returns a sample by ID",
		Tags:        []string{"Samples"},
	}, s.handleGetSample)

	huma.Register(s.api, huma.Operation{
		OperationID: "listSampleDatasets",
		Method:      http.MethodGet,
		Path:        "/api/v1/samples/{id}/datasets",
		Summary:     "List sample datasets",
		Description: "Returns the datasets attached to a sample, oldest first",
		Tags:        []string{"Samples"},
	}, s.handleListSampleDatasets)
}

// SampleResponse contains sample data in API responses.
type SampleResponse struct {
	ID           string            `json:"id" doc:"Sample ID"`
	Code         string            `json:"code" doc:"Generated sample code"`
	Identifier   string            `json:"identifier" doc:"Repository identifier /SPACE/CODE"`
	Space        string            `json:"space" doc:"Space code"`
	Type         string            `json:"type" doc:"Sample type code"`
	ExperimentID string            `json:"experiment_id,omitempty" doc:"Experiment ID"`
	Properties   map[string]string `json:"properties" doc:"Property values by property code"`
	CreatedAt    time.Time         `json:"created_at" doc:"Registration time"`
	UpdatedAt    time.Time         `json:"updated_at" doc:"Last update time"`
}

// GetSampleInput contains parameters for getting a sample.
type GetSampleInput struct {
	ID string `path:"id" doc:"Sample ID"`
}

// SampleOutput wraps the sample response for Huma.
type SampleOutput struct {
	Body SampleResponse
}

// ListDatasetsResponse contains a list of datasets.
type ListDatasetsResponse struct {
	Datasets []DatasetResponse `json:"datasets" doc:"Datasets"`
}

// ListDatasetsOutput wraps the list datasets response for Huma.
type ListDatasetsOutput struct {
	Body ListDatasetsResponse
}

func (s *Server) handleGetSample(ctx context.Context, input *GetSampleInput) (*SampleOutput, error) {
	smp, err := s.store.Samples.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &SampleOutput{Body: toSampleResponse(smp)}, nil
}

func (s *Server) handleListSampleDatasets(ctx context.Context, input *GetSampleInput) (*ListDatasetsOutput, error) {
	if _, err := s.store.Samples.Get(ctx, input.ID); err != nil {
		return nil, err
	}

	datasets, err := s.store.ListDatasetsBySample(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	resp := make([]DatasetResponse, len(datasets))
	for i, ds := range datasets {
		resp[i] = toDatasetResponse(ds)
	}
	return &ListDatasetsOutput{Body: ListDatasetsResponse{Datasets: resp}}, nil
}

func toSampleResponse(smp *domain.Sample) SampleResponse {
	return SampleResponse{
		ID:           smp.ID,
		Code:         smp.Code,
		Identifier:   smp.Identifier,
		Space:        smp.Space,
		Type:         smp.Type,
		ExperimentID: smp.ExperimentID,
		Properties:   properties(smp.Properties),
		CreatedAt:    smp.CreatedAt,
		UpdatedAt:    smp.UpdatedAt,
	}
}
