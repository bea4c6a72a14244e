package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/evanschultz/beacon/internal/app"
	"github.com/evanschultz/beacon/internal/domain"
	"github.com/evanschultz/beacon/internal/store"
	"github.com/evanschultz/beacon/internal/telemetry"
)

// newDependencies builds dependencies over a bootstrapped in-memory service.
func newDependencies(t *testing.T) (Dependencies, *store.Store) {
	t.Helper()
	now := time.Date(2026, 2, 24, 12, 0, 0, 0, time.UTC)
	st := store.New(store.WithClock(func() time.Time { return now }))
	rec := telemetry.NewRecorder(st.Snapshot)
	svc := app.NewService(st, nil, func() time.Time { return now }, app.ServiceConfig{Observer: rec})
	if err := svc.Bootstrap(context.Background(), app.SeedSourceFunc(func(context.Context) (app.Seed, error) {
		return app.Seed{Initiatives: []domain.Initiative{{ID: 1, Title: "Leadership Development", Progress: 75, Status: domain.StatusOnTrack}}}, nil
	})); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	return Dependencies{
		Service: svc,
		Metrics: rec.Registry(),
		Ready:   func() bool { return !st.Snapshot().Loading },
	}, st
}

// TestNewHandlerRoutes verifies health, metrics and mounted API routes.
func TestNewHandlerRoutes(t *testing.T) {
	deps, _ := newDependencies(t)
	handler, cfg, err := NewHandler(Config{}, deps)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	if cfg.HTTPBind != defaultBindAddress || cfg.APIEndpoint != "/api/v1" || cfg.MCPEndpoint != "/mcp" || cfg.MetricsEndpoint != "/metrics" {
		t.Fatalf("unexpected normalized config %#v", cfg)
	}
	server := httptest.NewServer(handler)
	defer server.Close()

	for path, want := range map[string]int{
		"/healthz":              http.StatusOK,
		"/readyz":               http.StatusOK,
		"/api/v1/initiatives":   http.StatusOK,
		"/api/v1/initiatives/1": http.StatusOK,
		"/api/v1/initiatives/9": http.StatusNotFound,
		"/api/v1/dashboard":     http.StatusOK,
		"/metrics":              http.StatusOK,
	} {
		resp, err := server.Client().Get(server.URL + path)
		if err != nil {
			t.Fatalf("Get(%s) error = %v", path, err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != want {
			t.Fatalf("GET %s status = %d, want %d", path, resp.StatusCode, want)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if body := rec.Body.String(); !strings.Contains(body, `beacon_store_dispatch_total{kind="initialize",outcome="committed"} 1`) {
		t.Fatalf("metrics body missing dispatch counter:\n%s", body)
	}
}

// TestReadyzReportsLoading verifies readiness follows the loading flag.
func TestReadyzReportsLoading(t *testing.T) {
	deps, _ := newDependencies(t)
	deps.Ready = func() bool { return false }
	handler, _, err := NewHandler(Config{}, deps)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

// TestNormalizeConfigRejectsCollisions verifies endpoint collisions fail.
func TestNormalizeConfigRejectsCollisions(t *testing.T) {
	cases := []Config{
		{APIEndpoint: "/mcp"},
		{MetricsEndpoint: "api/v1/"},
		{MCPEndpoint: "/healthz"},
	}
	for _, cfg := range cases {
		if _, err := normalizeConfig(cfg); err == nil {
			t.Fatalf("normalizeConfig(%#v) expected collision error", cfg)
		}
	}
	got, err := normalizeConfig(Config{APIEndpoint: "api/", ServerName: "  "})
	if err != nil {
		t.Fatalf("normalizeConfig() error = %v", err)
	}
	if got.APIEndpoint != "/api" || got.ServerName != "beacon" || got.ServerVersion != "dev" {
		t.Fatalf("unexpected config %#v", got)
	}
}

// TestNewHandlerRequiresService verifies the service dependency is mandatory.
func TestNewHandlerRequiresService(t *testing.T) {
	if _, _, err := NewHandler(Config{}, Dependencies{}); err == nil {
		t.Fatal("expected missing service error")
	}
}

// TestRunStopsOnCancel verifies graceful shutdown when the context ends.
func TestRunStopsOnCancel(t *testing.T) {
	deps, _ := newDependencies(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{HTTPBind: "127.0.0.1:0"}, deps)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
