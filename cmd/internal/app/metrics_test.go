package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsRoute_BoundedCardinality(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want string }{
		{"/api/v1/accounts/login", "/api/v1/accounts/login"},
		{"/api/v1/accounts/refresh", "/api/v1/accounts/refresh"},
		{"/healthz", "/healthz"},
		{"/media/abc123.png", "/media/"},
		{"/api/v1/accounts/" + strings.Repeat("x", 64), "other"},
		{"/anything/else", "other"},
	}
	for _, tc := range cases {
		if got := metricsRoute(tc.in); got != tc.want {
			t.Fatalf("metricsRoute(%q)=%q want=%q", tc.in, got, tc.want)
		}
	}
}

func TestMetrics_Endpoint(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.ObserveAuth("login", "ok")
	m.ObserveAuth("login", "unauthorized")
	m.ObserveHTTP(http.MethodPost, "/api/v1/accounts/login", 200, 42*time.Millisecond)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics endpoint: %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "streamhub_auth_operations_total") {
		t.Fatalf("auth counter missing from exposition")
	}
	if !strings.Contains(body, "streamhub_http_request_duration_seconds") {
		t.Fatalf("http histogram missing from exposition")
	}
}
