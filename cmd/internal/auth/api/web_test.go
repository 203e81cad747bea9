package authapi

import (
	"net/http/httptest"
	"testing"
)

func TestAccessTokenFromRequest_CookieWinsOverBearer(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET", "/api/v1/accounts/current", nil)
	r.Header.Set("Authorization", "Bearer header-token")
	r.Header.Add("Cookie", "accessToken=cookie-token")
	if got := accessTokenFromRequest(r); got != "cookie-token" {
		t.Fatalf("expected cookie to win, got %q", got)
	}

	r = httptest.NewRequest("GET", "/api/v1/accounts/current", nil)
	r.Header.Set("Authorization", "Bearer header-token")
	if got := accessTokenFromRequest(r); got != "header-token" {
		t.Fatalf("expected bearer fallback, got %q", got)
	}

	r = httptest.NewRequest("GET", "/api/v1/accounts/current", nil)
	if got := accessTokenFromRequest(r); got != "" {
		t.Fatalf("expected empty token, got %q", got)
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	cases := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"Bearer   spaced   ", "spaced"},
	}
	for _, tc := range cases {
		r := httptest.NewRequest("GET", "/", nil)
		if tc.header != "" {
			r.Header.Set("Authorization", tc.header)
		}
		if got := bearerToken(r); got != tc.want {
			t.Fatalf("header %q: expected %q, got %q", tc.header, tc.want, got)
		}
	}
}
