package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingodocs/docstore/internal/config"
	"github.com/lingodocs/docstore/internal/reaper"
)

func memoryConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.Backend = config.BackendMemory
	return cfg
}

func TestNewApp_MemoryBackend(t *testing.T) {
	app, err := NewApp(context.Background(), memoryConfig())
	require.NoError(t, err)
	assert.NotNil(t, app.Trees)
	assert.NotNil(t, app.Uploader)
	assert.NotNil(t, app.Metadata)
	assert.NotNil(t, app.Payments)
	assert.NotNil(t, app.Reaper)
}

func TestNewApp_UnknownBackend(t *testing.T) {
	cfg := memoryConfig()
	cfg.Backend = "tape"
	_, err := NewApp(context.Background(), cfg)
	require.Error(t, err)
}

func TestNewApp_BadReapSchedule(t *testing.T) {
	cfg := memoryConfig()
	cfg.ReapSchedule = "whenever"
	_, err := NewApp(context.Background(), cfg)
	require.Error(t, err)
}

func TestDiagnostics_ReapEndpoint(t *testing.T) {
	app, err := NewApp(context.Background(), memoryConfig())
	require.NoError(t, err)

	srv := httptest.NewServer(app.diagnosticsHandler())
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/internal/reap", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res reaper.ReapResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.True(t, res.TrashWasEmpty)

	// the reap endpoint is POST-only
	getResp, err := http.Get(srv.URL + "/internal/reap")
	require.NoError(t, err)
	getResp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, getResp.StatusCode)
}

func TestDiagnostics_MetricsEndpoint(t *testing.T) {
	app, err := NewApp(context.Background(), memoryConfig())
	require.NoError(t, err)

	srv := httptest.NewServer(app.diagnosticsHandler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
