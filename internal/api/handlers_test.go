package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ynoir/obit-microscopy-core-technology/internal/domain"
	"github.com/ynoir/obit-microscopy-core-technology/internal/registry"
)

func TestListExperiments_Pagination(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()

	tx := ts.store.Begin()
	r := registry.NewRegistrar(tx, nil)
	for _, id := range []string{"/LAB/E1", "/LAB/E2", "/LAB/E3"} {
		_, err := r.GetOrCreateExperiment(ctx, registry.ExperimentRequest{Identifier: id, Type: domain.ExperimentTypeMicroscopy})
		require.NoError(t, err)
	}
	require.NoError(t, tx.Commit())

	resp := ts.api.Get("/api/v1/experiments?limit=2")
	require.Equal(t, http.StatusOK, resp.Code)
	first := decode[ListExperimentsResponse](t, resp.Body.Bytes())
	require.Len(t, first.Experiments, 2)
	assert.True(t, first.HasMore)
	require.NotEmpty(t, first.NextCursor)

	resp = ts.api.Get("/api/v1/experiments?limit=2&cursor=" + first.NextCursor)
	require.Equal(t, http.StatusOK, resp.Code)
	second := decode[ListExperimentsResponse](t, resp.Body.Bytes())
	require.Len(t, second.Experiments, 1)
	assert.False(t, second.HasMore)
	assert.Empty(t, second.NextCursor)

	var identifiers []string
	for _, exp := range append(first.Experiments, second.Experiments...) {
		identifiers = append(identifiers, exp.Identifier)
	}
	assert.ElementsMatch(t, []string{"/LAB/E1", "/LAB/E2", "/LAB/E3"}, identifiers)
}

func TestListExperiments_ByIdentifier(t *testing.T) {
	ts := setupTestServer(t)
	reg := ts.seed(t)

	resp := ts.api.Get("/api/v1/experiments?identifier=/LAB/EXP1")
	require.Equal(t, http.StatusOK, resp.Code)
	body := decode[ListExperimentsResponse](t, resp.Body.Bytes())
	require.Len(t, body.Experiments, 1)
	assert.Equal(t, reg.experiment.ID, body.Experiments[0].ID)
	assert.Equal(t, "LAB", body.Experiments[0].Space)
	assert.Equal(t, "EXP1", body.Experiments[0].Code)
	assert.Equal(t, "Exp", body.Experiments[0].Properties[domain.PropExperimentName])

	resp = ts.api.Get("/api/v1/experiments?identifier=/LAB/OTHER")
	require.Equal(t, http.StatusOK, resp.Code)
	body = decode[ListExperimentsResponse](t, resp.Body.Bytes())
	assert.Empty(t, body.Experiments)
}

func TestListExperiments_InvalidCursor(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/experiments?cursor=%25%25%25")
	require.Equal(t, http.StatusBadRequest, resp.Code)

	apiErr := decode[APIError](t, resp.Body.Bytes())
	assert.Equal(t, "VALIDATION", apiErr.Code)
}

func TestGetExperiment(t *testing.T) {
	ts := setupTestServer(t)
	reg := ts.seed(t)

	resp := ts.api.Get("/api/v1/experiments/" + reg.experiment.ID)
	require.Equal(t, http.StatusOK, resp.Code)
	body := decode[ExperimentResponse](t, resp.Body.Bytes())
	assert.Equal(t, "/LAB/EXP1", body.Identifier)
	assert.Equal(t, domain.ExperimentTypeMicroscopy, body.Type)
}

func TestGetExperiment_NotFound(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/experiments/exp-missing")
	require.Equal(t, http.StatusNotFound, resp.Code)

	apiErr := decode[APIError](t, resp.Body.Bytes())
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
}

func TestListExperimentSamples(t *testing.T) {
	ts := setupTestServer(t)
	reg := ts.seed(t)

	resp := ts.api.Get("/api/v1/experiments/" + reg.experiment.ID + "/samples")
	require.Equal(t, http.StatusOK, resp.Code)
	body := decode[ListSamplesResponse](t, resp.Body.Bytes())
	require.Len(t, body.Samples, 1)
	assert.Equal(t, reg.sample.Code, body.Samples[0].Code)
	assert.Equal(t, "/LAB/"+reg.sample.Code, body.Samples[0].Identifier)
	assert.Equal(t, "cells.lsm", body.Samples[0].Properties[domain.PropSampleName])

	resp = ts.api.Get("/api/v1/experiments/exp-missing/samples")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestGetSample(t *testing.T) {
	ts := setupTestServer(t)
	reg := ts.seed(t)

	resp := ts.api.Get("/api/v1/samples/" + reg.sample.ID)
	require.Equal(t, http.StatusOK, resp.Code)
	body := decode[SampleResponse](t, resp.Body.Bytes())
	assert.Equal(t, reg.experiment.ID, body.ExperimentID)

	resp = ts.api.Get("/api/v1/samples/smp-missing")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestListSampleDatasets(t *testing.T) {
	ts := setupTestServer(t)
	reg := ts.seed(t)

	resp := ts.api.Get("/api/v1/samples/" + reg.sample.ID + "/datasets")
	require.Equal(t, http.StatusOK, resp.Code)
	body := decode[ListDatasetsResponse](t, resp.Body.Bytes())
	require.Len(t, body.Datasets, 2)
	assert.Equal(t, reg.root.ID, body.Datasets[0].ID)
	assert.Equal(t, reg.linked.ID, body.Datasets[1].ID)
	assert.Equal(t, reg.root.ID, body.Datasets[1].RootID)
	assert.Equal(t, "GFP", body.Datasets[0].Channels[0].Name)
	assert.Equal(t, "DAPI", body.Datasets[1].Channels[0].Name)
}

func TestGetDataset_ListsLinkedDatasets(t *testing.T) {
	ts := setupTestServer(t)
	reg := ts.seed(t)

	resp := ts.api.Get("/api/v1/datasets/" + reg.root.ID)
	require.Equal(t, http.StatusOK, resp.Code)
	root := decode[DatasetResponse](t, resp.Body.Bytes())
	assert.Equal(t, []string{reg.linked.ID}, root.LinkedDatasets)
	assert.NotEmpty(t, root.StoragePath)
	assert.Equal(t, "overview", root.Properties[domain.PropContainerName])

	resp = ts.api.Get("/api/v1/datasets/" + reg.linked.ID)
	require.Equal(t, http.StatusOK, resp.Code)
	linked := decode[DatasetResponse](t, resp.Body.Bytes())
	assert.Empty(t, linked.LinkedDatasets)
	assert.Equal(t, reg.sample.ID, linked.SampleID)

	resp = ts.api.Get("/api/v1/datasets/ds-missing")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestCORS(t *testing.T) {
	ts := setupTestServer(t, "http://viewer.example")

	resp := ts.api.Get("/health", "Origin: http://viewer.example")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "http://viewer.example", resp.Header().Get("Access-Control-Allow-Origin"))

	resp = ts.api.Get("/health", "Origin: http://other.example")
	assert.Empty(t, resp.Header().Get("Access-Control-Allow-Origin"))
}
