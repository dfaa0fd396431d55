package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockverse/internal/app"
	"github.com/annel0/blockverse/internal/config"
	"github.com/annel0/blockverse/internal/metrics"
)

func newTestServer(t *testing.T, generate bool) *RestServer {
	t.Helper()
	cfg := config.Default()
	cfg.World.SizeX = 1
	cfg.World.SizeZ = 1
	cfg.World.HeightChunks = 2
	cfg.World.ChunkSize = 8
	cfg.World.WaterLevel = 4
	cfg.Terrain.Dirt.MaxHeight = 7
	cfg.Terrain.Stone.MaxHeight = 5
	cfg.Terrain.Bedrock.MaxHeight = 2
	cfg.Generation.Parallel = false
	cfg.Save.Path = filepath.Join(t.TempDir(), "world.dat")

	reg := prometheus.NewRegistry()
	session, err := app.NewSession(cfg, app.Options{Metrics: metrics.NewMetrics(reg)})
	require.NoError(t, err)
	t.Cleanup(session.Close)
	if generate {
		_, err = session.Generate(context.Background())
		require.NoError(t, err)
	}
	return NewRestServer(Config{Session: session, Registry: reg, Gatherer: reg})
}

func do(t *testing.T, rs *RestServer, method, path string, body interface{}) (*httptest.ResponseRecorder, GenericResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	rs.Handler().ServeHTTP(w, req)

	var resp GenericResponse
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestHealth(t *testing.T) {
	rs := newTestServer(t, false)
	w, _ := do(t, rs, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Trace-Id"))
}

func TestWorldBeforeGenerate(t *testing.T) {
	rs := newTestServer(t, false)
	w, resp := do(t, rs, http.MethodGet, "/api/world", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.False(t, resp.Success)

	w, _ = do(t, rs, http.MethodPost, "/api/world/generate", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp = do(t, rs, http.MethodGet, "/api/world", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
}

func TestBuildHitRefreshEndpoints(t *testing.T) {
	rs := newTestServer(t, true)

	w, _ := do(t, rs, http.MethodPost, "/api/blocks/build", BuildRequest{X: 3, Y: 15, Z: 3, Type: "stone"})
	require.Equal(t, http.StatusCreated, w.Code)

	w, resp := do(t, rs, http.MethodGet, "/api/chunks?dirty=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	views, ok := resp.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, views, 1)

	w, _ = do(t, rs, http.MethodPost, "/api/blocks/build", BuildRequest{X: 3, Y: 15, Z: 3, Type: "dirt"})
	assert.Equal(t, http.StatusConflict, w.Code, "клетка занята")

	w, _ = do(t, rs, http.MethodPost, "/api/blocks/build", BuildRequest{X: 3, Y: 14, Z: 3, Type: "marble"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = do(t, rs, http.MethodPost, "/api/blocks/hit", HitRequest{X: 3, Y: 15, Z: 3, Damage: 3})
	require.Equal(t, http.StatusOK, w.Code)
	hit := resp.Data.(map[string]interface{})
	assert.Equal(t, false, hit["destroyed"])
	assert.Equal(t, float64(7), hit["hp"])

	w, _ = do(t, rs, http.MethodPost, "/api/blocks/hit", HitRequest{X: 3, Y: 15, Z: 3, Damage: 200})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, rs, http.MethodPost, "/api/blocks/hit", HitRequest{X: 3, Y: 15, Z: 3, Damage: 1})
	assert.Equal(t, http.StatusConflict, w.Code, "воздух не разрушается")

	w, _ = do(t, rs, http.MethodPost, "/api/blocks/hit", HitRequest{X: 99, Y: 0, Z: 0, Damage: 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, rs, http.MethodPost, "/api/blocks/hit", HitRequest{X: 1, Y: 1, Z: 1})
	assert.Equal(t, http.StatusBadRequest, w.Code, "урон обязателен")

	w, resp = do(t, rs, http.MethodPost, "/api/refresh", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), resp.Data.(map[string]interface{})["rebuilt"])

	w, resp = do(t, rs, http.MethodGet, "/api/blocks?x=3&y=15&z=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "air", resp.Data.(map[string]interface{})["type"])

	w, _ = do(t, rs, http.MethodGet, "/api/blocks?x=3&y=abc&z=3", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSaveAndLoadEndpoints(t *testing.T) {
	rs := newTestServer(t, true)

	w, _ := do(t, rs, http.MethodPut, "/api/pose", PoseRequest{Position: [3]float32{4, 10, 4}})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, rs, http.MethodPost, "/api/save", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, rs, http.MethodPost, "/api/load", PathRequest{Path: filepath.Join(t.TempDir(), "none.dat")})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, rs, http.MethodPost, "/api/load", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, rs, http.MethodGet, "/api/slots", nil)
	assert.Equal(t, http.StatusNotImplemented, w.Code, "архив слотов не подключён")
}

func TestMetricsEndpoint(t *testing.T) {
	rs := newTestServer(t, true)
	do(t, rs, http.MethodGet, "/health", nil)

	w, _ := do(t, rs, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "blockverse_generation_phase_seconds")
	assert.Contains(t, w.Body.String(), "rest_api_http_request_duration_seconds")
}

func TestStatusEndpoint(t *testing.T) {
	rs := newTestServer(t, false)
	w, resp := do(t, rs, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := resp.Data.(map[string]interface{})
	assert.NotEmpty(t, status["uptime"])
	assert.Greater(t, status["goroutines"], float64(0))
}
