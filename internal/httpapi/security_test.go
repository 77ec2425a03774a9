package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLoginRateLimitPerClient(t *testing.T) {
	api := newTestAPI(t)

	body := `{"username":"admin","password":"definitely-wrong"}`
	for attempt := 1; attempt <= 6; attempt++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "203.0.113.9:51000"
		res := httptest.NewRecorder()
		api.Handler().ServeHTTP(res, req)

		if attempt <= 5 && res.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status %d, want 401", attempt, res.Code)
		}
		if attempt == 6 && res.Code != http.StatusTooManyRequests {
			t.Fatalf("attempt %d: status %d, want 429", attempt, res.Code)
		}
	}

	// A different client address is not throttled.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.10:51000"
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("fresh client: status %d, want 401", res.Code)
	}
}

func TestMiddlewareSetsSecurityHeaders(t *testing.T) {
	api := newTestAPI(t)

	res := doJSON(t, api, "", http.MethodGet, "/healthz", nil)

	expected := map[string]string{
		"X-Content-Type-Options":      "nosniff",
		"X-Frame-Options":             "DENY",
		"Referrer-Policy":             "strict-origin-when-cross-origin",
		"Cross-Origin-Opener-Policy":  "same-origin",
		"Access-Control-Allow-Origin": "*",
	}
	for header, want := range expected {
		if got := res.Header().Get(header); got != want {
			t.Fatalf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestPreflightShortCircuits(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/channels", nil)
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusNoContent {
		t.Fatalf("preflight: %d, want 204", res.Code)
	}
}

func TestJSONBodyTooLargeRejected(t *testing.T) {
	api := newTestAPI(t)

	oversized := `{"username":"admin","password":"` + strings.Repeat("a", (1<<20)+1024) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(oversized))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("oversized body: %d, want 400", res.Code)
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"admin","password":"admin123","extra":true}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("unknown field: %d, want 400", res.Code)
	}
}

func TestParsePositiveLimit(t *testing.T) {
	cases := []struct {
		raw      string
		fallback int
		max      int
		want     int
	}{
		{"", 50, 500, 50},
		{"25", 50, 500, 25},
		{"9999", 50, 500, 500},
		{"-3", 50, 500, 50},
		{"abc", 50, 500, 50},
	}
	for _, tc := range cases {
		if got := parsePositiveLimit(tc.raw, tc.fallback, tc.max); got != tc.want {
			t.Fatalf("parsePositiveLimit(%q) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestClientKeyParsing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = "192.0.2.7:40112"
	if key := clientKey(req); key != "192.0.2.7" {
		t.Fatalf("clientKey = %q", key)
	}

	req.RemoteAddr = ""
	if key := clientKey(req); key != "unknown" {
		t.Fatalf("clientKey on empty addr = %q", key)
	}
}
