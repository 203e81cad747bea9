package token

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.AccessSecret = []byte(strings.Repeat("a", 32))
	cfg.RefreshSecret = []byte(strings.Repeat("r", 32))
	return cfg
}

func mustService(t *testing.T, cfg Config) *Service {
	t.Helper()
	svc, err := NewService(cfg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestNewService_RejectsSharedOrWeakSecrets(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.RefreshSecret = cfg.AccessSecret
	if _, err := NewService(cfg); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig for shared secret, got: %v", err)
	}

	cfg = testConfig()
	cfg.AccessSecret = []byte("short")
	if _, err := NewService(cfg); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig for short secret, got: %v", err)
	}
}

func TestAccess_IssueAndVerify(t *testing.T) {
	t.Parallel()

	svc := mustService(t, testConfig())
	now := time.Now().UTC()

	id := Identity{
		AccountID: "01HZZZZZZZZZZZZZZZZZZZZZZZ",
		Email:     "alice@x.com",
		Username:  "alice",
		FullName:  "Alice A",
	}

	tok, exp, err := svc.IssueAccess(id, now)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if !exp.After(now) {
		t.Fatalf("expected exp after now")
	}

	claims, err := svc.VerifyAccess(tok, now.Add(time.Second))
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if claims.AccountID != id.AccountID || claims.Email != id.Email ||
		claims.Username != id.Username || claims.FullName != id.FullName {
		t.Fatalf("claims mismatch: %+v", claims)
	}
}

func TestRefresh_IssueAndVerify_MinimalClaims(t *testing.T) {
	t.Parallel()

	svc := mustService(t, testConfig())
	now := time.Now().UTC()

	tok, _, err := svc.IssueRefresh("01HZZZZZZZZZZZZZZZZZZZZZZZ", now)
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}

	claims, err := svc.VerifyRefresh(tok, now.Add(time.Second))
	if err != nil {
		t.Fatalf("VerifyRefresh: %v", err)
	}
	if claims.AccountID != "01HZZZZZZZZZZZZZZZZZZZZZZZ" {
		t.Fatalf("account id mismatch: %q", claims.AccountID)
	}

	// Refresh tokens must not carry the profile claims.
	if strings.Contains(tok, "alice") {
		t.Fatalf("refresh token leaked identity fields")
	}
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.AccessTTL = time.Minute
	svc := mustService(t, cfg)

	now := time.Now().UTC()
	tok, _, err := svc.IssueAccess(Identity{AccountID: "acct"}, now)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	if _, err := svc.VerifyAccess(tok, now.Add(2*time.Minute)); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got: %v", err)
	}
}

func TestVerify_KindsAreNotInterchangeable(t *testing.T) {
	t.Parallel()

	svc := mustService(t, testConfig())
	now := time.Now().UTC()

	access, _, err := svc.IssueAccess(Identity{AccountID: "acct"}, now)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	refresh, _, err := svc.IssueRefresh("acct", now)
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}

	// Each kind is signed with its own secret; crossing them must fail.
	if _, err := svc.VerifyRefresh(access, now); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("access token verified as refresh: %v", err)
	}
	if _, err := svc.VerifyAccess(refresh, now); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("refresh token verified as access: %v", err)
	}
}

func TestVerify_TamperedAndGarbage(t *testing.T) {
	t.Parallel()

	svc := mustService(t, testConfig())
	now := time.Now().UTC()

	tok, _, err := svc.IssueAccess(Identity{AccountID: "acct"}, now)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	tampered := tok[:len(tok)-2] + "xx"
	if _, err := svc.VerifyAccess(tampered, now); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature for tampered token, got: %v", err)
	}

	for _, bad := range []string{"", "garbage", strings.Repeat("x", 5000)} {
		if _, err := svc.VerifyAccess(bad, now); !errors.Is(err, ErrBadSignature) {
			t.Fatalf("input %q: expected ErrBadSignature, got %v", bad[:min(len(bad), 12)], err)
		}
	}
}

func TestVerify_WrongIssuer(t *testing.T) {
	t.Parallel()

	other := testConfig()
	other.Issuer = "someone-else"
	otherSvc := mustService(t, other)

	now := time.Now().UTC()
	tok, _, err := otherSvc.IssueAccess(Identity{AccountID: "acct"}, now)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	svc := mustService(t, testConfig())
	if _, err := svc.VerifyAccess(tok, now); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature for wrong issuer, got: %v", err)
	}
}
