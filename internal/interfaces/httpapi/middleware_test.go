package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireInternalJobToken_UnconfiguredRejects(t *testing.T) {
	handler := RequireInternalJobToken("", okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/poll", nil)
	req.Header.Set("X-Internal-Job-Token", "anything")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
}

func TestRequireInternalJobToken_MismatchRejects(t *testing.T) {
	handler := RequireInternalJobToken("secret", okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/poll", nil)
	req.Header.Set("X-Internal-Job-Token", "wrong")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestRequireInternalJobToken_MatchPasses(t *testing.T) {
	handler := RequireInternalJobToken("secret", okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/poll", nil)
	req.Header.Set("X-Internal-Job-Token", "secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}

func TestCORS_AllowAllSetsWildcard(t *testing.T) {
	handler := CORS([]string{"*"}, okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/leagues/lg-1/pool", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard origin, got %q", got)
	}
}

func TestCORS_UnlistedOriginGetsNoHeaders(t *testing.T) {
	handler := CORS([]string{"https://app.example.com"}, okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/leagues/lg-1/pool", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no allow-origin header, got %q", got)
	}
}

func TestCORS_PreflightShortCircuits(t *testing.T) {
	called := false
	handler := CORS([]string{"https://app.example.com"}, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/v1/leagues/lg-1/pool", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	if called {
		t.Fatalf("preflight should not reach the next handler")
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("expected allow-origin for listed origin, got %q", got)
	}
}

func TestShouldTraceRequest_SkipsHealthEndpoints(t *testing.T) {
	for _, path := range []string{"/healthz", "/health", "/livez", "/readyz"} {
		if shouldTraceRequest(path) {
			t.Fatalf("expected %s to be excluded from tracing", path)
		}
	}
	if !shouldTraceRequest("/v1/leagues/lg-1/pool") {
		t.Fatalf("expected api route to be traced")
	}
}
