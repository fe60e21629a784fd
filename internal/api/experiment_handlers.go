package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ynoir/obit-microscopy-core-technology/internal/domain"
	"github.com/ynoir/obit-microscopy-core-technology/internal/errors"
	"github.com/ynoir/obit-microscopy-core-technology/internal/store"
)

func (s *Server) registerExperimentRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listExperiments",
		Method:      http.MethodGet,
		Path:        "/api/v1/experiments",
		Summary:     "List experiments",
		Description: "Returns registered experiments with cursor pagination, or the experiment with a given repository identifier",
		Tags:        []string{"Experiments"},
	}, s.handleListExperiments)

	huma.Register(s.api, huma.Operation{
		OperationID: "getExperiment",
		Method:      http.MethodGet,
		Path:        "/api/v1/experiments/{id}",
		Summary:     "Get experiment",
		Description: "Returns an experiment by ID",
		Tags:        []string{"Experiments"},
	}, s.handleGetExperiment)

	huma.Register(s.api, huma.Operation{
		OperationID: "listExperimentSamples",
		Method:      http.MethodGet,
		Path:        "/api/v1/experiments/{id}/samples",
		Summary:     "List experiment samples",
		Description: "Returns the samples attached to an experiment",
		Tags:        []string{"Experiments"},
	}, s.handleListExperimentSamples)
}

// === DTOs ===

// ListExperimentsInput contains parameters for listing experiments.
type ListExperimentsInput struct {
	Identifier string `query:"identifier" doc:"Repository identifier, e.g. /SPACE/PROJECT/EXP"`
	Cursor     string `query:"cursor" doc:"Pagination cursor"`
	Limit      int    `query:"limit" doc:"Items per page (default 100, max 1000)"`
}

// ExperimentResponse contains experiment data in API responses.
type ExperimentResponse struct {
	ID         string            `json:"id" doc:"Experiment ID"`
	Identifier string            `json:"identifier" doc:"Repository identifier"`
	Code       string            `json:"code" doc:"Experiment code"`
	Space      string            `json:"space" doc:"Space code"`
	Type       string            `json:"type" doc:"Experiment type code"`
	Properties map[string]string `json:"properties" doc:"Property values by property code"`
	CreatedAt  time.Time         `json:"created_at" doc:"Registration time"`
	UpdatedAt  time.Time         `json:"updated_at" doc:"Last update time"`
}

// ListExperimentsResponse contains a page of experiments.
type ListExperimentsResponse struct {
	Experiments []ExperimentResponse `json:"experiments" doc:"Experiments"`
	NextCursor  string               `json:"next_cursor,omitempty" doc:"Cursor of the next page"`
	HasMore     bool                 `json:"has_more" doc:"Whether more experiments follow"`
}

// ListExperimentsOutput wraps the list experiments response for Huma.
type ListExperimentsOutput struct {
	Body ListExperimentsResponse
}

// GetExperimentInput contains parameters for getting an experiment.
type GetExperimentInput struct {
	ID string `path:"id" doc:"Experiment ID"`
}

// ExperimentOutput wraps the experiment response for Huma.
type ExperimentOutput struct {
	Body ExperimentResponse
}

// ListSamplesResponse contains a list of samples.
type ListSamplesResponse struct {
	Samples []SampleResponse `json:"samples" doc:"Samples"`
}

// ListSamplesOutput wraps the list samples response for Huma.
type ListSamplesOutput struct {
	Body ListSamplesResponse
}

// === Handlers ===

func (s *Server) handleListExperiments(ctx context.Context, input *ListExperimentsInput) (*ListExperimentsOutput, error) {
	if input.Identifier != "" {
		exp, err := s.store.GetExperimentByIdentifier(ctx, input.Identifier)
		if errors.Is(err, store.ErrNotFound) {
			return &ListExperimentsOutput{Body: ListExperimentsResponse{Experiments: []ExperimentResponse{}}}, nil
		}
		if err != nil {
			return nil, err
		}
		return &ListExperimentsOutput{Body: ListExperimentsResponse{
			Experiments: []ExperimentResponse{toExperimentResponse(exp)},
		}}, nil
	}

	if _, err := store.DecodeCursor(input.Cursor); err != nil {
		return nil, huma.Error400BadRequest("invalid cursor", err)
	}

	page, err := s.store.Experiments.Page(ctx, store.PaginationParams{
		Limit:  input.Limit,
		Cursor: input.Cursor,
	})
	if err != nil {
		return nil, err
	}

	resp := make([]ExperimentResponse, len(page.Items))
	for i, exp := range page.Items {
		resp[i] = toExperimentResponse(exp)
	}

	return &ListExperimentsOutput{Body: ListExperimentsResponse{
		Experiments: resp,
		NextCursor:  page.NextCursor,
		HasMore:     page.HasMore,
	}}, nil
}

func (s *Server) handleGetExperiment(ctx context.Context, input *GetExperimentInput) (*ExperimentOutput, error) {
	exp, err := s.store.Experiments.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &ExperimentOutput{Body: toExperimentResponse(exp)}, nil
}

func (s *Server) handleListExperimentSamples(ctx context.Context, input *GetExperimentInput) (*ListSamplesOutput, error) {
	if _, err := s.store.Experiments.Get(ctx, input.ID); err != nil {
		return nil, err
	}

	samples, err := s.store.ListSamplesByExperiment(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	resp := make([]SampleResponse, len(samples))
	for i, smp := range samples {
		resp[i] = toSampleResponse(smp)
	}
	return &ListSamplesOutput{Body: ListSamplesResponse{Samples: resp}}, nil
}

func toExperimentResponse(exp *domain.Experiment) ExperimentResponse {
	return ExperimentResponse{
		ID:         exp.ID,
		Identifier: exp.Identifier,
		Code:       exp.Code,
		Space:      exp.Space,
		Type:       exp.Type,
		Properties: properties(exp.Properties),
		CreatedAt:  exp.CreatedAt,
		UpdatedAt:  exp.UpdatedAt,
	}
}

// properties never returns nil, so the field always encodes as an object.
func properties(p domain.Properties) map[string]string {
	if p == nil {
		return map[string]string{}
	}
	return p
}
