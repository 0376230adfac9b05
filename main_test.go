package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oncoai/internal/config"
	"oncoai/internal/models"
)

func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func testConfig(t *testing.T, overrides map[string]any) config.Config {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	v.Set("DB_DRIVER", "memory")
	v.Set("AUTH_BCRYPT_COST", 4)
	v.Set("SECRET_KEY", "test_jwt_secret")
	for k, val := range overrides {
		v.Set(k, val)
	}
	cfg, err := config.Load(v)
	require.NoError(t, err)
	return cfg
}

func newTestApplication(t *testing.T, overrides map[string]any) *application {
	t.Helper()
	deps, err := newApplication(testConfig(t, overrides))
	require.NoError(t, err)
	t.Cleanup(deps.Close)
	return deps
}

func doJSON(t *testing.T, deps *application, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := buildApp(deps).Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(data, &out))
	}
	return resp, out
}

func TestHealthWithBundledModel(t *testing.T) {
	deps := newTestApplication(t, nil)

	resp, body := doJSON(t, deps, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "connected", body["database"])
	assert.Equal(t, true, body["model_loaded"])
}

func TestMissingModelKeepsServiceUp(t *testing.T) {
	deps := newTestApplication(t, map[string]any{"MODEL_PATH": "models/does-not-exist.yaml"})

	resp, body := doJSON(t, deps, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, false, body["model_loaded"])

	require.NoError(t, seedDemoUser(context.Background(), deps.store, deps.hasher))
	resp, body = doJSON(t, deps, http.MethodPost, "/login", "", map[string]string{"username": demoUsername, "password": demoPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token, _ := body["access_token"].(string)

	features := make([]float64, models.FeatureCount)
	resp, _ = doJSON(t, deps, http.MethodPost, "/predict", token, map[string]any{"features": features})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestSeedDemoUserEndToEnd(t *testing.T) {
	deps := newTestApplication(t, nil)
	ctx := context.Background()

	require.NoError(t, seedDemoUser(ctx, deps.store, deps.hasher))
	require.NoError(t, seedDemoUser(ctx, deps.store, deps.hasher), "seeding twice is a no-op")

	resp, body := doJSON(t, deps, http.MethodPost, "/login", "", map[string]string{"username": demoUsername, "password": demoPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "bearer", body["token_type"])
	token, _ := body["access_token"].(string)
	require.NotEmpty(t, token)

	resp, body = doJSON(t, deps, http.MethodGet, "/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, demoUsername, body["username"])
	assert.Equal(t, demoFullName, body["name"])

	features := make([]float64, models.FeatureCount)
	for i := range features {
		features[i] = 0.3
	}
	resp, body = doJSON(t, deps, http.MethodPost, "/predict", token, map[string]any{"features": features})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	p, ok := body["survival_probability"].(float64)
	require.True(t, ok)
	assert.GreaterOrEqual(t, p, 0.0)
	assert.LessOrEqual(t, p, 1.0)
}

func TestMetricsEndpoint(t *testing.T) {
	deps := newTestApplication(t, nil)

	doJSON(t, deps, http.MethodPost, "/login", "", map[string]string{"username": "nobody", "password": "nope"})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := buildApp(deps).Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), `oncoai_auth_attempts_total{operation="login",outcome="unauthorized"} 1`)
}

func TestRootAndCORS(t *testing.T) {
	deps := newTestApplication(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := buildApp(deps).Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
