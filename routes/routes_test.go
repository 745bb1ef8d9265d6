package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/upb/multichat/app"
	"github.com/upb/multichat/config"
	"github.com/upb/multichat/middleware"
)

const testCatalog = `
providers:
  OpenAI:
    name: OpenAI
    models:
      - id: gpt-4o
        name: GPT-4o
personas:
  - id: default
    name: Default
    description: You are a helpful assistant.
`

func newTestDeps(t *testing.T, secret string) *app.Dependencies {
	t.Helper()
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(catalogPath, []byte(testCatalog), 0o600))

	cfg := &config.Config{
		Environment: "test",
		Server:      config.ServerConfig{CORSOrigins: []string{"https://chat.example.com"}},
		History: config.HistoryConfig{
			Backend: config.HistoryBackendFile,
			Dir:     filepath.Join(dir, "history"),
		},
		Auth:      config.AuthConfig{JWTSecret: secret},
		Providers: config.ProvidersConfig{CatalogPath: catalogPath, Timeout: 5 * time.Second},
	}

	deps, err := app.NewDependencies(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close(context.Background()) })
	return deps
}

func serve(h http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSetupRoutes(t *testing.T) {
	h := SetupRoutes(newTestDeps(t, ""))

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"liveness", http.MethodGet, "/healthz", http.StatusOK},
		{"readiness", http.MethodGet, "/readyz", http.StatusOK},
		{"providers", http.MethodGet, "/api/v1/providers", http.StatusOK},
		{"models", http.MethodGet, "/api/v1/providers/OpenAI/models", http.StatusOK},
		{"models of unknown provider", http.MethodGet, "/api/v1/providers/Nope/models", http.StatusNotFound},
		{"personas", http.MethodGet, "/api/v1/personas", http.StatusOK},
		{"ui", http.MethodGet, "/api/v1/ui", http.StatusOK},
		{"chat list", http.MethodGet, "/api/v1/chats", http.StatusOK},
		{"missing chat", http.MethodGet, "/api/v1/chats/does-not-exist", http.StatusNotFound},
		{"unknown route", http.MethodGet, "/api/v2/anything", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, tt.method, tt.path, "")
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestSetupRoutes_ProviderList(t *testing.T) {
	h := SetupRoutes(newTestDeps(t, ""))

	rec := serve(h, http.MethodGet, "/api/v1/providers", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "OpenAI", body.Data[0].ID)
}

func TestSetupRoutes_Auth(t *testing.T) {
	const secret = "route-secret"
	h := SetupRoutes(newTestDeps(t, secret))

	t.Run("health stays public", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/healthz", "").Code)
	})

	t.Run("api requires a token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, serve(h, http.MethodGet, "/api/v1/providers", "").Code)
	})

	t.Run("bad token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, serve(h, http.MethodGet, "/api/v1/providers", "garbage").Code)
	})

	t.Run("signed token", func(t *testing.T) {
		token, err := middleware.SignToken(secret, "", "alice", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/api/v1/providers", token).Code)
	})
}

func TestSetupRoutes_CORS(t *testing.T) {
	h := SetupRoutes(newTestDeps(t, ""))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/providers", nil)
	req.Header.Set("Origin", "https://chat.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://chat.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/providers", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSetupRoutes_SendMessage(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	h := SetupRoutes(newTestDeps(t, ""))

	body := `{"provider":"OpenAI","model":"gpt-4o","message":"hi"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chats/messages", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "OPENAI_API_KEY")

	list := serve(h, http.MethodGet, "/api/v1/chats", "")
	assert.Contains(t, list.Body.String(), `"provider":"OpenAI"`)
}
