package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ziadkadry99/cf-pulse/internal/audit"
	"github.com/ziadkadry99/cf-pulse/internal/catalog"
	"github.com/ziadkadry99/cf-pulse/internal/chat"
	"github.com/ziadkadry99/cf-pulse/internal/dashboard"
	"github.com/ziadkadry99/cf-pulse/internal/db"
	"github.com/ziadkadry99/cf-pulse/internal/gateway"
	"github.com/ziadkadry99/cf-pulse/internal/llm"
	"github.com/ziadkadry99/cf-pulse/internal/memory"
	"github.com/ziadkadry99/cf-pulse/internal/platform/fake"
)

type staticProvider struct{}

func (staticProvider) Name() string { return "static" }

func (staticProvider) Complete(_ context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{Content: "all good"}, nil
}

func setupServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	p := fake.New("", "")
	fake.Seed(p)
	store := audit.NewStore(database)
	d, err := gateway.New(catalog.Default(), p, gateway.WithRecorder(audit.NewRecorder(store, nil)))
	if err != nil {
		t.Fatalf("gateway.New: %v", err)
	}
	mem := memory.NewSQLiteStore(database, 10)
	o := chat.New(staticProvider{}, d, catalog.Default(), mem)

	return New(cfg, Deps{
		Dispatcher: d,
		Chat:       o,
		Audit:      store,
		Dashboard:  dashboard.New(catalog.Default(), store, mem),
	}, nil)
}

func TestHealthCheck(t *testing.T) {
	srv := setupServer(t, Config{Port: 0})

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", body["status"])
	}
}

func TestCORSHeaders(t *testing.T) {
	srv := setupServer(t, Config{Port: 0, AllowAll: true})

	req := httptest.NewRequest("OPTIONS", "/healthz", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected CORS Allow-Origin header")
	}
}

func TestFeatureRoutesMounted(t *testing.T) {
	srv := setupServer(t, Config{Port: 0})

	tests := []struct {
		method, path, body string
	}{
		{"GET", "/api/commands/", ""},
		{"POST", "/api/commands/applications-list", `{"org":"acme","space":"dev"}`},
		{"GET", "/orgs", ""},
		{"GET", "/spaces?org=acme", ""},
		{"GET", "/chat?chat=status&org=acme&space=dev", ""},
		{"POST", "/api/chat", `{"input":"status","org":"acme","space":"dev"}`},
		{"GET", "/api/conversations/default/turns", ""},
		{"GET", "/api/audit/", ""},
		{"GET", "/", ""},
		{"GET", "/api/dashboard/stats", ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			srv.Router().ServeHTTP(w, req)
			if w.Code != http.StatusOK {
				t.Errorf("expected 200, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestDispatchesAreAudited(t *testing.T) {
	srv := setupServer(t, Config{Port: 0})

	req := httptest.NewRequest("POST", "/api/commands/scale", strings.NewReader(`{"org":"acme","space":"dev","args":{"name":"joke","instances":2}}`))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("scale: %d %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest("GET", "/api/audit/?command=scale", nil)
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	var entries []audit.Entry
	json.NewDecoder(w.Body).Decode(&entries)
	if len(entries) != 1 || entries[0].Org != "acme" || entries[0].Source != audit.SourceQuery {
		t.Errorf("entries = %+v", entries)
	}
}
