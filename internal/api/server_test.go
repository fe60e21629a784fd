package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/ynoir/obit-microscopy-core-technology/internal/domain"
	"github.com/ynoir/obit-microscopy-core-technology/internal/imaging"
	"github.com/ynoir/obit-microscopy-core-technology/internal/registry"
	"github.com/ynoir/obit-microscopy-core-technology/internal/store"
)

// testServer wraps the API server for testing.
type testServer struct {
	*Server
	api   humatest.TestAPI
	store *store.Store
}

// setupTestServer creates a server over a fresh store.
func setupTestServer(t *testing.T, allowedOrigins ...string) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.New(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	s := NewServer(st, allowedOrigins, logger)
	return &testServer{
		Server: s,
		api:    humatest.Wrap(t, s.api),
		store:  st,
	}
}

// registered is what seed wrote to the store.
type registered struct {
	experiment *domain.Experiment
	sample     *domain.Sample
	root       *domain.Dataset
	linked     *domain.Dataset
}

// seed registers a two-series file under /LAB/EXP1 and commits it.
func (ts *testServer) seed(t *testing.T) registered {
	t.Helper()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "cells.lsm")
	require.NoError(t, os.WriteFile(path, []byte("pixels"), 0o644))

	tx := ts.store.Begin()
	r := registry.NewRegistrar(tx, nil)

	exp, err := r.GetOrCreateExperiment(ctx, registry.ExperimentRequest{
		Identifier: "/LAB/EXP1",
		Name:       "Exp",
		Type:       domain.ExperimentTypeMicroscopy,
	})
	require.NoError(t, err)

	sample, err := r.CreateSample(ctx, registry.SampleRequest{
		Experiment: exp,
		Name:       "cells.lsm",
		Type:       domain.SampleTypeMicroscopy,
	})
	require.NoError(t, err)

	md := []domain.SeriesMetadata{
		{Name: "overview", ChannelNames: []string{"GFP"}, ChannelColors: [][]int{{0, 255, 0}}},
		{Name: "detail", ChannelNames: []string{"DAPI"}, ChannelColors: [][]int{{0, 0, 255}}},
	}
	root, err := r.CreateRootDataset(ctx, imaging.NewSingleSeriesConfig(md, imaging.OnlySeries(0), nil), path,
		registry.DatasetProperties{Name: md[0].Name})
	require.NoError(t, err)
	require.NoError(t, r.MoveFile(ctx, path, root))

	linked, err := r.CreateLinkedDataset(ctx, imaging.NewSingleSeriesConfig(md, imaging.OnlySeries(1), nil), root,
		registry.DatasetProperties{Name: md[1].Name})
	require.NoError(t, err)

	require.NoError(t, r.AttachSample(ctx, root, sample))
	require.NoError(t, r.AttachSample(ctx, linked, sample))
	require.NoError(t, tx.Commit())

	return registered{experiment: exp, sample: sample, root: root, linked: linked}
}

// decode unmarshals a response body.
func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v))
	return v
}
