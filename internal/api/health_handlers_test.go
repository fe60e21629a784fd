package api

import (
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck_Success(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	health := decode[HealthResponse](t, resp.Body.Bytes())
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "healthy", health.Components["database"].Status)
	assert.NotEmpty(t, health.Components["database"].Latency)
	assert.Equal(t, "healthy", health.Components["storage"].Status)
}

func TestHealthCheck_StorageMissing(t *testing.T) {
	ts := setupTestServer(t)
	require.NoError(t, os.RemoveAll(ts.store.StorageRoot()))

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	health := decode[HealthResponse](t, resp.Body.Bytes())
	assert.Equal(t, "unhealthy", health.Status)
	assert.Equal(t, "unhealthy", health.Components["storage"].Status)
}

func TestHealthCheck_NoStore(t *testing.T) {
	s := NewServer(nil, nil, nil)
	health := s.checkDatabase(t.Context())
	assert.Equal(t, "degraded", health.Status)
	assert.Equal(t, "degraded", s.checkStorage().Status)
}
