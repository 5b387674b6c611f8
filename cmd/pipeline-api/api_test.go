package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/idpflow/pkg/engine"
	"github.com/dukex/idpflow/pkg/mocks"
	"github.com/dukex/idpflow/pkg/models"
	"github.com/dukex/idpflow/pkg/nodes/simulate"
	"github.com/dukex/idpflow/pkg/persistence/file"
	"github.com/dukex/idpflow/pkg/projects"
	"github.com/dukex/idpflow/pkg/protocol"
	"github.com/dukex/idpflow/pkg/registry"
	"github.com/dukex/idpflow/pkg/services"
	"github.com/dukex/idpflow/pkg/storage"
	"github.com/dukex/idpflow/pkg/testutil"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	dataDir := t.TempDir()
	files := storage.NewDiskStore(dataDir, testutil.Logger())

	reg := registry.NewRegistry(testutil.Logger())
	reg.RegisterDefaultNodes(protocol.Dependencies{
		Logger:    testutil.Logger(),
		Invoker:   &mocks.MockInvoker{},
		Files:     files,
		Simulator: simulate.Always(),
	})

	api := NewAPI(
		testutil.Logger(),
		file.NewPersistence(dataDir),
		reg,
		engine.New(reg, testutil.Logger()),
		projects.NewMemoryDirectory(*testutil.Project("proj-1")),
		files,
		services.NewActivity(testutil.Logger()),
	)

	return api.App()
}

func request(t *testing.T, app *fiber.App, method, path string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := resp.Body.Close(); err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	})

	return resp
}

func TestAPI_RootEndpoint(t *testing.T) {
	t.Parallel()

	resp := request(t, setupTestApp(t), http.MethodGet, "/", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Pipeline API", string(body))
}

func TestAPI_HealthCheck(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	for _, path := range []string{"/livez", "/readyz"} {
		resp := request(t, app, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "OK", string(body))
	}

	resp := request(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_GetPipelines_Empty(t *testing.T) {
	t.Parallel()

	resp := request(t, setupTestApp(t), http.MethodGet, "/pipelines", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	var body struct {
		Pipelines  []services.PipelineSummary `json:"pipelines"`
		TotalCount int                        `json:"total_count"`
	}

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Empty(t, body.Pipelines)
	assert.Equal(t, 0, body.TotalCount)
}

func TestAPI_PipelineLifecycle(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	resp := request(t, app, http.MethodPost, "/pipelines", map[string]string{"name": "Invoices"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.PipelineDocument
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "Invoices", created.Name)

	resp = request(t, app, http.MethodPost, "/pipelines/"+created.ID+"/nodes", map[string]any{
		"type":     string(models.KindSlack),
		"position": map[string]float64{"x": 10, "y": 20},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = request(t, app, http.MethodPost, "/pipelines/"+created.ID+"/run", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result models.RunResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, models.RunSuccess, result.Status)

	resp = request(t, app, http.MethodDelete, "/pipelines/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = request(t, app, http.MethodGet, "/pipelines/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_GetPipeline_NotFound(t *testing.T) {
	t.Parallel()

	resp := request(t, setupTestApp(t), http.MethodGet, "/pipelines/non-existent-pipeline", nil)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_CORS_Headers(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	req := httptest.NewRequest(http.MethodOptions, "/pipelines", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
