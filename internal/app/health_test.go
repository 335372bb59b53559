package app

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"scholars/api/internal/cache"
	"scholars/api/internal/share"
)

func healthHandler(ping func(context.Context) error) http.Handler {
	svc := New(Deps{Shares: share.NewMemoryStore(), Settings: &fakeSettings{pingFn: ping}})
	return NewHTTPServer(svc, "https://scholars.example", nil).Handler()
}

func TestHealthEndpoint(t *testing.T) {
	handler := healthHandler(nil)

	rr := doJSON(t, handler, http.MethodGet, "/api/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ok := decodeResponse[map[string]any](t, rr)["ok"]; ok != true {
		t.Fatalf("expected ok=true, got %v", ok)
	}
	if origin := rr.Header().Get("Access-Control-Allow-Origin"); origin != "https://scholars.example" {
		t.Errorf("unexpected CORS origin %q", origin)
	}
	if cache := rr.Header().Get("Cache-Control"); cache != "no-store" {
		t.Errorf("expected Cache-Control=no-store, got %q", cache)
	}

	if rr := doJSON(t, handler, http.MethodHead, "/api/health", nil); rr.Code != http.StatusOK {
		t.Errorf("expected HEAD 200, got %d", rr.Code)
	}
	if rr := doJSON(t, handler, http.MethodOptions, "/api/ask", nil); rr.Code != http.StatusNoContent {
		t.Errorf("expected preflight 204, got %d", rr.Code)
	}
}

func TestReadyEndpoint(t *testing.T) {
	cases := []struct {
		name     string
		pingErr  error
		status   int
		ready    string
		dbStatus string
	}{
		{"database up", nil, http.StatusOK, "ready", "ok"},
		{"database down", errors.New("connection refused"), http.StatusServiceUnavailable, "not_ready", "error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := healthHandler(func(context.Context) error { return tc.pingErr })

			rr := doJSON(t, handler, http.MethodGet, "/api/ready", nil)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
			body := decodeResponse[map[string]any](t, rr)
			if body["ok"] != (tc.pingErr == nil) || body["status"] != tc.ready {
				t.Fatalf("unexpected readiness body %v", body)
			}
			checks, _ := body["checks"].(map[string]any)
			db, _ := checks["database"].(map[string]any)
			if db["status"] != tc.dbStatus {
				t.Fatalf("expected database status %s, got %v", tc.dbStatus, db)
			}
			if tc.pingErr != nil && db["error"] != tc.pingErr.Error() {
				t.Fatalf("expected ping error in body, got %v", db["error"])
			}
		})
	}
}

func TestReadyReportsCache(t *testing.T) {
	redisServer := miniredis.RunT(t)
	redisCache, err := cache.NewRedisStore("redis://"+redisServer.Addr(), time.Hour)
	if err != nil {
		t.Fatalf("redis store: %v", err)
	}
	t.Cleanup(func() { _ = redisCache.Close() })

	svc := New(Deps{Shares: share.NewMemoryStore(), Settings: &fakeSettings{}, Cache: redisCache})
	handler := NewHTTPServer(svc, "*", nil).Handler()

	cacheCheck := func(t *testing.T) (int, map[string]any, map[string]any) {
		t.Helper()
		rr := doJSON(t, handler, http.MethodGet, "/api/ready", nil)
		body := decodeResponse[map[string]any](t, rr)
		checks, _ := body["checks"].(map[string]any)
		entry, _ := checks["cache"].(map[string]any)
		return rr.Code, body, entry
	}

	code, _, entry := cacheCheck(t)
	if code != http.StatusOK || entry["status"] != "ok" {
		t.Fatalf("expected ready with cache ok, got %d %v", code, entry)
	}

	redisServer.Close()
	code, body, entry := cacheCheck(t)
	if code != http.StatusOK || body["status"] != "ready" {
		t.Fatalf("cache outage must not fail readiness, got %d %v", code, body)
	}
	if entry["status"] != "error" || entry["error"] == "" {
		t.Fatalf("expected cache error entry, got %v", entry)
	}
}

func TestReadyOmitsCacheWhenNotConfigured(t *testing.T) {
	rr := doJSON(t, healthHandler(nil), http.MethodGet, "/api/ready", nil)
	checks, _ := decodeResponse[map[string]any](t, rr)["checks"].(map[string]any)
	if _, ok := checks["cache"]; ok {
		t.Fatalf("expected no cache check, got %v", checks)
	}
}
