package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/murmurlabs/murmur"
	"github.com/murmurlabs/murmur/infrastructure/api"
	"github.com/murmurlabs/murmur/infrastructure/provider"
)

type nullEmbedder struct{}

func (nullEmbedder) Embed(_ context.Context, req provider.EmbeddingRequest) (provider.EmbeddingResponse, error) {
	embeddings := make([][]float64, len(req.Texts()))
	for i := range embeddings {
		embeddings[i] = []float64{1, 0, 0}
	}
	return provider.NewEmbeddingResponse(embeddings, provider.Usage{}), nil
}

func newAPIServer(t *testing.T) *api.APIServer {
	t.Helper()
	tmpDir := t.TempDir()
	client, err := murmur.New(
		murmur.WithSQLite(filepath.Join(tmpDir, "test.db")),
		murmur.WithDataDir(tmpDir),
		murmur.WithEmbeddingProvider(nullEmbedder{}),
	)
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return api.NewAPIServer(client, "0.1.0-test")
}

func TestAPIServer_Healthz(t *testing.T) {
	srv := newAPIServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status field = %q, want healthy", body["status"])
	}
}

func TestAPIServer_CORSHeaders(t *testing.T) {
	srv := newAPIServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/search/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestAPIServer_RoutesMounted(t *testing.T) {
	srv := newAPIServer(t)

	// Transcript listing is reachable through the full route tree.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/transcripts/", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d, body = %s", w.Code, w.Body.String())
	}

	var list []any
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected empty list, got %d entries", len(list))
	}
}

func TestAPIServer_MCPInitialize(t *testing.T) {
	srv := newAPIServer(t)

	payload := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": "2025-06-18",
			"capabilities":    map[string]any{},
			"clientInfo":      map[string]any{"name": "test", "version": "0.0.1"},
		},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("mcp initialize status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestAPIServer_Shutdown(t *testing.T) {
	srv := newAPIServer(t)

	// Shutdown before ListenAndServe is a no-op.
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}
