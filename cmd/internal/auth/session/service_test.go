package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"streamhub/cmd/account"
	"streamhub/cmd/security/password"
	"streamhub/cmd/security/token"
)

// Cheap argon2id parameters; cost tuning is covered in the password package.
func fastHasher() *password.Hasher {
	cfg := password.DefaultConfig()
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	cfg.Params.Parallelism = 1
	return password.NewHasher(cfg, 4)
}

func testTokens(t *testing.T) *token.Service {
	t.Helper()
	cfg := token.DefaultConfig()
	cfg.AccessSecret = []byte(strings.Repeat("a", 32))
	cfg.RefreshSecret = []byte(strings.Repeat("r", 32))
	svc, err := token.NewService(cfg)
	if err != nil {
		t.Fatalf("token.NewService: %v", err)
	}
	return svc
}

func newTestService(t *testing.T, cfg Config) (*Service, *account.MemoryStore) {
	t.Helper()
	store := account.NewMemoryStore()
	svc, err := NewService(cfg, store, fastHasher(), testTokens(t))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store
}

func registerInput() RegisterInput {
	return RegisterInput{
		FullName:  "Alice Ardent",
		Email:     "alice@example.com",
		Username:  "alice",
		Password:  "correct horse",
		AvatarURL: "https://cdn.example.com/avatars/alice.png",
	}
}

func mustRegister(t *testing.T, svc *Service, in RegisterInput) account.Account {
	t.Helper()
	acct, err := svc.Register(context.Background(), time.Now().UTC(), in)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return acct
}

func mustLogin(t *testing.T, svc *Service, in LoginInput) Session {
	t.Helper()
	sess, err := svc.Login(context.Background(), time.Now().UTC(), in)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	return sess
}

func TestRegister_NormalizesAndStartsNoSession(t *testing.T) {
	t.Parallel()

	svc, store := newTestService(t, DefaultConfig())

	in := registerInput()
	in.Username = "  AlIcE  "
	in.Email = " ALICE@Example.COM "
	in.FullName = "  Alice Ardent  "

	acct := mustRegister(t, svc, in)
	if acct.Username != "alice" || acct.Email != "alice@example.com" || acct.FullName != "Alice Ardent" {
		t.Fatalf("not normalized: %+v", acct)
	}
	if acct.PasswordHash != "" || acct.CurrentRefreshToken != nil {
		t.Fatalf("secrets leaked from Register")
	}
	if acct.ID == "" {
		t.Fatalf("missing id")
	}

	stored, err := store.GetByID(context.Background(), acct.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.CurrentRefreshToken != nil {
		t.Fatalf("registration must not start a session")
	}
	if stored.PasswordHash == "" || strings.Contains(stored.PasswordHash, in.Password) {
		t.Fatalf("password not hashed: %q", stored.PasswordHash)
	}
}

func TestRegister_MissingFields(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, DefaultConfig())

	in := registerInput()
	in.Email = "   "
	in.AvatarURL = ""

	_, err := svc.Register(context.Background(), time.Now().UTC(), in)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got: %v", err)
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got: %T", err)
	}
	if len(verr.Fields) != 2 {
		t.Fatalf("expected 2 offending fields, got: %v", verr.Fields)
	}
}

func TestRegister_ShortPassword(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, DefaultConfig())

	in := registerInput()
	in.Password = "short"

	_, err := svc.Register(context.Background(), time.Now().UTC(), in)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got: %v", err)
	}
}

func TestRegister_ConflictsAreCaseInsensitive(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, DefaultConfig())
	mustRegister(t, svc, registerInput())

	dupUser := registerInput()
	dupUser.Username = "ALICE"
	dupUser.Email = "other@example.com"
	_, err := svc.Register(context.Background(), time.Now().UTC(), dupUser)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got: %v", err)
	}
	var cerr ConflictError
	if !errors.As(err, &cerr) || cerr.Field != "username" {
		t.Fatalf("expected username conflict, got: %v", err)
	}

	dupEmail := registerInput()
	dupEmail.Username = "bob"
	dupEmail.Email = "Alice@Example.com"
	_, err = svc.Register(context.Background(), time.Now().UTC(), dupEmail)
	if !errors.As(err, &cerr) || cerr.Field != "email" {
		t.Fatalf("expected email conflict, got: %v", err)
	}
}

func TestLogin_PersistsRefreshToken(t *testing.T) {
	t.Parallel()

	svc, store := newTestService(t, DefaultConfig())
	acct := mustRegister(t, svc, registerInput())

	sess := mustLogin(t, svc, LoginInput{Username: "alice", Password: "correct horse"})
	if sess.AccessToken == "" || sess.RefreshToken == "" {
		t.Fatalf("missing tokens: %+v", sess)
	}
	if sess.AccessToken == sess.RefreshToken {
		t.Fatalf("token kinds must differ")
	}
	if sess.Account.PasswordHash != "" || sess.Account.CurrentRefreshToken != nil {
		t.Fatalf("secrets leaked from Login")
	}

	stored, err := store.GetByID(context.Background(), acct.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.CurrentRefreshToken == nil || *stored.CurrentRefreshToken != sess.RefreshToken {
		t.Fatalf("refresh token not persisted before return")
	}
}

func TestLogin_ByEmailAndIdentifierPrecedence(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, DefaultConfig())
	mustRegister(t, svc, registerInput())

	sess := mustLogin(t, svc, LoginInput{Email: "ALICE@example.com", Password: "correct horse"})
	if sess.Account.Username != "alice" {
		t.Fatalf("wrong account: %+v", sess.Account)
	}

	// Username wins when both identifiers are present.
	_, err := svc.Login(context.Background(), time.Now().UTC(), LoginInput{
		Username: "nobody",
		Email:    "alice@example.com",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("expected fallthrough to email, got: %v", err)
	}
}

func TestLogin_Failures(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, DefaultConfig())
	mustRegister(t, svc, registerInput())
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := svc.Login(ctx, now, LoginInput{Password: "correct horse"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("no identifier: expected ErrValidation, got: %v", err)
	}
	if _, err := svc.Login(ctx, now, LoginInput{Username: "alice"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("no password: expected ErrValidation, got: %v", err)
	}
	if _, err := svc.Login(ctx, now, LoginInput{Username: "nobody", Password: "correct horse"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown user: expected ErrNotFound, got: %v", err)
	}
	if _, err := svc.Login(ctx, now, LoginInput{Username: "alice", Password: "wrong password"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("bad password: expected ErrUnauthorized, got: %v", err)
	}
}

func TestLogin_SecondLoginInvalidatesFirstSession(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, DefaultConfig())
	mustRegister(t, svc, registerInput())
	ctx := context.Background()

	first := mustLogin(t, svc, LoginInput{Username: "alice", Password: "correct horse"})
	second := mustLogin(t, svc, LoginInput{Username: "alice", Password: "correct horse"})

	if _, err := svc.Refresh(ctx, time.Now().UTC(), first.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("first session's token should be dead, got: %v", err)
	}
	if _, err := svc.Refresh(ctx, time.Now().UTC(), second.RefreshToken); err != nil {
		t.Fatalf("second session's token should rotate: %v", err)
	}
}

func TestRefresh_RotatesAndBlocksReplay(t *testing.T) {
	t.Parallel()

	svc, store := newTestService(t, DefaultConfig())
	acct := mustRegister(t, svc, registerInput())
	ctx := context.Background()

	sess := mustLogin(t, svc, LoginInput{Username: "alice", Password: "correct horse"})

	rotated, err := svc.Refresh(ctx, time.Now().UTC(), sess.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if rotated.RefreshToken == sess.RefreshToken {
		t.Fatalf("refresh token not rotated")
	}
	if rotated.AccessToken == "" {
		t.Fatalf("missing access token")
	}

	stored, err := store.GetByID(ctx, acct.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.CurrentRefreshToken == nil || *stored.CurrentRefreshToken != rotated.RefreshToken {
		t.Fatalf("store does not hold the rotated token")
	}

	// Replaying the consumed token must fail and must not disturb the
	// current session.
	if _, err := svc.Refresh(ctx, time.Now().UTC(), sess.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("replay: expected ErrUnauthorized, got: %v", err)
	}
	stored, _ = store.GetByID(ctx, acct.ID)
	if stored.CurrentRefreshToken == nil || *stored.CurrentRefreshToken != rotated.RefreshToken {
		t.Fatalf("replay disturbed the stored token")
	}
}

func TestRefresh_GarbageAndForeignTokens(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, DefaultConfig())
	mustRegister(t, svc, registerInput())
	ctx := context.Background()
	now := time.Now().UTC()

	for _, bad := range []string{"", "garbage", strings.Repeat("x", 5000)} {
		if _, err := svc.Refresh(ctx, now, bad); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("input %q: expected ErrUnauthorized, got: %v", bad[:min(len(bad), 12)], err)
		}
	}

	// Well-signed token for an account with no live session.
	sess := mustLogin(t, svc, LoginInput{Username: "alice", Password: "correct horse"})
	if err := svc.Logout(ctx, now, sess.Account.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.Refresh(ctx, now, sess.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("logged-out token: expected ErrUnauthorized, got: %v", err)
	}
}

func TestRefresh_ExpiredToken(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, DefaultConfig())
	mustRegister(t, svc, registerInput())
	ctx := context.Background()

	sess := mustLogin(t, svc, LoginInput{Username: "alice", Password: "correct horse"})

	// Evaluate the same stored token well past its lifetime.
	future := time.Now().UTC().Add(8 * 24 * time.Hour)
	if _, err := svc.Refresh(ctx, future, sess.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expired token: expected ErrUnauthorized, got: %v", err)
	}
}

func TestLogout_Idempotent(t *testing.T) {
	t.Parallel()

	svc, store := newTestService(t, DefaultConfig())
	acct := mustRegister(t, svc, registerInput())
	ctx := context.Background()
	now := time.Now().UTC()

	mustLogin(t, svc, LoginInput{Username: "alice", Password: "correct horse"})

	if err := svc.Logout(ctx, now, acct.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if err := svc.Logout(ctx, now, acct.ID); err != nil {
		t.Fatalf("second Logout: %v", err)
	}
	if err := svc.Logout(ctx, now, "01HZZZZZZZZZZZZZZZZZZZZZZZ"); err != nil {
		t.Fatalf("Logout of unknown account: %v", err)
	}

	stored, _ := store.GetByID(ctx, acct.ID)
	if stored.CurrentRefreshToken != nil {
		t.Fatalf("refresh token not cleared")
	}
}

func TestChangePassword(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, DefaultConfig())
	acct := mustRegister(t, svc, registerInput())
	ctx := context.Background()
	now := time.Now().UTC()

	if err := svc.ChangePassword(ctx, now, acct.ID, "wrong password", "brand new pass"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("wrong old password: expected ErrUnauthorized, got: %v", err)
	}
	if err := svc.ChangePassword(ctx, now, acct.ID, "correct horse", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank new password: expected ErrValidation, got: %v", err)
	}
	if err := svc.ChangePassword(ctx, now, acct.ID, "correct horse", "short"); !errors.Is(err, ErrValidation) {
		t.Fatalf("short new password: expected ErrValidation, got: %v", err)
	}

	if err := svc.ChangePassword(ctx, now, acct.ID, "correct horse", "brand new pass"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	if _, err := svc.Login(ctx, now, LoginInput{Username: "alice", Password: "correct horse"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("old password should be dead, got: %v", err)
	}
	if _, err := svc.Login(ctx, now, LoginInput{Username: "alice", Password: "brand new pass"}); err != nil {
		t.Fatalf("new password should work: %v", err)
	}
}

func TestChangePassword_SessionSurvivesByDefault(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, DefaultConfig())
	acct := mustRegister(t, svc, registerInput())
	ctx := context.Background()
	now := time.Now().UTC()

	sess := mustLogin(t, svc, LoginInput{Username: "alice", Password: "correct horse"})
	if err := svc.ChangePassword(ctx, now, acct.ID, "correct horse", "brand new pass"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := svc.Refresh(ctx, now, sess.RefreshToken); err != nil {
		t.Fatalf("session should survive a password change: %v", err)
	}
}

func TestChangePassword_RevokeFlagClearsSession(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.RevokeOnPasswordChange = true
	svc, _ := newTestService(t, cfg)
	acct := mustRegister(t, svc, registerInput())
	ctx := context.Background()
	now := time.Now().UTC()

	sess := mustLogin(t, svc, LoginInput{Username: "alice", Password: "correct horse"})
	if err := svc.ChangePassword(ctx, now, acct.ID, "correct horse", "brand new pass"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := svc.Refresh(ctx, now, sess.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected revoked session, got: %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, DefaultConfig())
	mustRegister(t, svc, registerInput())
	ctx := context.Background()
	now := time.Now().UTC()

	sess := mustLogin(t, svc, LoginInput{Username: "alice", Password: "correct horse"})

	acct, err := svc.Authenticate(ctx, now, sess.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if acct.Username != "alice" {
		t.Fatalf("wrong account: %+v", acct)
	}
	if acct.PasswordHash != "" || acct.CurrentRefreshToken != nil {
		t.Fatalf("secrets leaked from Authenticate")
	}

	if _, err := svc.Authenticate(ctx, now, sess.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("refresh token must not pass as access token: %v", err)
	}
	if _, err := svc.Authenticate(ctx, now, "garbage"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("garbage: expected ErrUnauthorized, got: %v", err)
	}
	if _, err := svc.Authenticate(ctx, now.Add(time.Hour), sess.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expired: expected ErrUnauthorized, got: %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, DefaultConfig())
	ctx := context.Background()
	now := time.Now().UTC()

	acct := mustRegister(t, svc, registerInput())

	sess := mustLogin(t, svc, LoginInput{Email: "alice@example.com", Password: "correct horse"})

	rotated, err := svc.Refresh(ctx, now, sess.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if _, err := svc.Refresh(ctx, now, sess.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("replay of pre-rotation token: expected ErrUnauthorized, got: %v", err)
	}

	if err := svc.Logout(ctx, now, acct.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	if _, err := svc.Refresh(ctx, now, rotated.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("post-logout refresh: expected ErrUnauthorized, got: %v", err)
	}
}
