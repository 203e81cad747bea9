package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"streamhub/cmd/account"
	"streamhub/cmd/security/password"
	"streamhub/cmd/security/token"
)

// Service implements the high-level session operations for streamhub.
//
// It registers accounts, verifies credentials, issues access + refresh
// token pairs, and performs refresh rotation with replay protection under
// a compare-and-set model: the store replaces a refresh token only while
// the presented token is still the current one.
type Service struct {
	cfg    Config
	store  account.Store
	hasher *password.Hasher
	tokens *token.Service
}

// Session is the result of a successful login or refresh.
type Session struct {
	Account      account.Account
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
}

// RegisterInput describes a registration request.
// AvatarURL is required; CoverImageURL is optional.
type RegisterInput struct {
	FullName      string
	Email         string
	Username      string
	Password      string
	AvatarURL     string
	CoverImageURL string
}

// LoginInput describes a login request. At least one of Username or Email
// must be provided; Username wins when both are.
type LoginInput struct {
	Username string
	Email    string
	Password string
}

// NewService constructs a Service from its collaborators.
func NewService(cfg Config, store account.Store, hasher *password.Hasher, tokens *token.Service) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if store == nil || hasher == nil || tokens == nil {
		return nil, fmt.Errorf("%w: nil collaborator", ErrConfig)
	}
	return &Service{cfg: cfg, store: store, hasher: hasher, tokens: tokens}, nil
}

// Register creates a new account with a hashed password and no active
// session. Uniqueness of username and email is checked up front for a
// friendly error, then enforced again by the store's own constraints.
func (s *Service) Register(ctx context.Context, now time.Time, in RegisterInput) (account.Account, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = account.NormalizeEmail(in.Email)
	in.Username = account.NormalizeUsername(in.Username)
	in.AvatarURL = strings.TrimSpace(in.AvatarURL)
	in.CoverImageURL = strings.TrimSpace(in.CoverImageURL)

	var missing []string
	if in.FullName == "" {
		missing = append(missing, "fullName")
	}
	if in.Email == "" {
		missing = append(missing, "email")
	}
	if in.Username == "" {
		missing = append(missing, "username")
	}
	if in.Password == "" {
		missing = append(missing, "password")
	}
	if in.AvatarURL == "" {
		missing = append(missing, "avatar")
	}
	if len(missing) > 0 {
		return account.Account{}, ValidationError{Fields: missing}
	}
	if len(in.Username) > s.cfg.MaxCredentialLen || len(in.Email) > s.cfg.MaxCredentialLen {
		return account.Account{}, ValidationError{Fields: []string{"username", "email"}}
	}

	// Advisory pre-check; the store's unique constraints remain authoritative.
	if _, err := s.store.GetByUsername(ctx, in.Username); err == nil {
		return account.Account{}, ConflictError{Field: "username"}
	} else if !account.IsNotFound(err) {
		return account.Account{}, err
	}
	if _, err := s.store.GetByEmail(ctx, in.Email); err == nil {
		return account.Account{}, ConflictError{Field: "email"}
	} else if !account.IsNotFound(err) {
		return account.Account{}, err
	}

	// Hash before any durable write; plaintext never reaches the store.
	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return account.Account{}, mapPasswordErr(err)
	}

	created, err := s.store.Create(ctx, account.CreateInput{
		Username:      in.Username,
		Email:         in.Email,
		FullName:      in.FullName,
		AvatarURL:     in.AvatarURL,
		CoverImageURL: in.CoverImageURL,
		PasswordHash:  hash,
		Now:           now,
	})
	if err != nil {
		return account.Account{}, mapStoreErr(err)
	}

	return sanitize(created), nil
}

// Login verifies credentials and starts a session. Any previously stored
// refresh token is overwritten: one live session per account.
func (s *Service) Login(ctx context.Context, now time.Time, in LoginInput) (Session, error) {
	in.Username = account.NormalizeUsername(in.Username)
	in.Email = account.NormalizeEmail(in.Email)

	var missing []string
	if in.Username == "" && in.Email == "" {
		missing = append(missing, "username or email")
	}
	if in.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return Session{}, ValidationError{Fields: missing}
	}
	if len(in.Username) > s.cfg.MaxCredentialLen || len(in.Email) > s.cfg.MaxCredentialLen {
		return Session{}, ValidationError{Fields: []string{"username", "email"}}
	}

	acct, err := s.lookup(ctx, in.Username, in.Email)
	if err != nil {
		return Session{}, err
	}

	ok, err := s.hasher.Verify(ctx, in.Password, acct.PasswordHash)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		return Session{}, fmt.Errorf("%w: bad credentials", ErrUnauthorized)
	}

	return s.startSession(ctx, now, acct)
}

func (s *Service) lookup(ctx context.Context, username, email string) (account.Account, error) {
	if username != "" {
		acct, err := s.store.GetByUsername(ctx, username)
		if err == nil {
			return acct, nil
		}
		if !account.IsNotFound(err) {
			return account.Account{}, err
		}
		// Fall through to email when both identifiers were given.
		if email == "" {
			return account.Account{}, ErrNotFound
		}
	}
	acct, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if account.IsNotFound(err) {
			return account.Account{}, ErrNotFound
		}
		return account.Account{}, err
	}
	return acct, nil
}

func (s *Service) startSession(ctx context.Context, now time.Time, acct account.Account) (Session, error) {
	refreshTok, refreshExp, err := s.tokens.IssueRefresh(acct.ID, now)
	if err != nil {
		return Session{}, err
	}

	// Persist before handing the token out; a token the server does not
	// know about must never reach a client.
	if err := s.store.SetRefreshToken(ctx, acct.ID, refreshTok, now); err != nil {
		return Session{}, mapStoreErr(err)
	}

	accessTok, accessExp, err := s.tokens.IssueAccess(identityOf(acct), now)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Account:      sanitize(acct),
		AccessToken:  accessTok,
		AccessExp:    accessExp,
		RefreshToken: refreshTok,
		RefreshExp:   refreshExp,
	}, nil
}

// Refresh rotates a refresh token: verify signature + expiry, match it
// against the stored value, then atomically replace it. A token that is
// expired, forged, already rotated, or cleared by logout fails with
// ErrUnauthorized; callers cannot tell those cases apart.
func (s *Service) Refresh(ctx context.Context, now time.Time, presented string) (Session, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" || len(presented) > s.cfg.MaxCredentialLen {
		return Session{}, fmt.Errorf("%w: refresh token", ErrUnauthorized)
	}

	claims, err := s.tokens.VerifyRefresh(presented, now)
	if err != nil {
		return Session{}, fmt.Errorf("%w: refresh token", ErrUnauthorized)
	}

	acct, err := s.store.GetByID(ctx, claims.AccountID)
	if err != nil {
		if account.IsNotFound(err) {
			return Session{}, fmt.Errorf("%w: refresh token", ErrUnauthorized)
		}
		return Session{}, err
	}

	if acct.CurrentRefreshToken == nil ||
		subtle.ConstantTimeCompare([]byte(*acct.CurrentRefreshToken), []byte(presented)) != 1 {
		return Session{}, fmt.Errorf("%w: refresh token", ErrUnauthorized)
	}

	newRefresh, refreshExp, err := s.tokens.IssueRefresh(acct.ID, now)
	if err != nil {
		return Session{}, err
	}

	// Compare-and-set: of two concurrent rotations of the same token, at
	// most one lands; the loser is told nothing beyond "unauthorized".
	if err := s.store.RotateRefreshToken(ctx, acct.ID, presented, newRefresh, now); err != nil {
		if account.IsStaleToken(err) || account.IsNotFound(err) {
			return Session{}, fmt.Errorf("%w: refresh token", ErrUnauthorized)
		}
		return Session{}, err
	}

	accessTok, accessExp, err := s.tokens.IssueAccess(identityOf(acct), now)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Account:      sanitize(acct),
		AccessToken:  accessTok,
		AccessExp:    accessExp,
		RefreshToken: newRefresh,
		RefreshExp:   refreshExp,
	}, nil
}

// Logout clears the account's stored refresh token. Idempotent: logging
// out twice, or with no live session, is not an error.
func (s *Service) Logout(ctx context.Context, now time.Time, accountID string) error {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return ValidationError{Fields: []string{"accountId"}}
	}
	if err := s.store.ClearRefreshToken(ctx, accountID, now); err != nil {
		if account.IsNotFound(err) {
			return nil
		}
		return err
	}
	return nil
}

// ChangePassword re-hashes the account's password after verifying the old
// one. The active session survives unless RevokeOnPasswordChange is set.
func (s *Service) ChangePassword(ctx context.Context, now time.Time, accountID, oldPassword, newPassword string) error {
	accountID = strings.TrimSpace(accountID)

	var missing []string
	if accountID == "" {
		missing = append(missing, "accountId")
	}
	if oldPassword == "" {
		missing = append(missing, "oldPassword")
	}
	if newPassword == "" {
		missing = append(missing, "newPassword")
	}
	if len(missing) > 0 {
		return ValidationError{Fields: missing}
	}

	acct, err := s.store.GetByID(ctx, accountID)
	if err != nil {
		if account.IsNotFound(err) {
			return fmt.Errorf("%w: bad credentials", ErrUnauthorized)
		}
		return err
	}

	ok, err := s.hasher.Verify(ctx, oldPassword, acct.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: old password does not match", ErrUnauthorized)
	}

	hash, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return mapPasswordErr(err)
	}

	if err := s.store.UpdatePasswordHash(ctx, accountID, hash, now); err != nil {
		return mapStoreErr(err)
	}

	if s.cfg.RevokeOnPasswordChange {
		if err := s.store.ClearRefreshToken(ctx, accountID, now); err != nil && !account.IsNotFound(err) {
			return err
		}
	}
	return nil
}

// Authenticate resolves an access token to its live account. Used by the
// HTTP auth guard; the returned account never carries server-side secrets.
func (s *Service) Authenticate(ctx context.Context, now time.Time, accessToken string) (account.Account, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" || len(accessToken) > s.cfg.MaxCredentialLen {
		return account.Account{}, fmt.Errorf("%w: access token", ErrUnauthorized)
	}

	claims, err := s.tokens.VerifyAccess(accessToken, now)
	if err != nil {
		return account.Account{}, fmt.Errorf("%w: access token", ErrUnauthorized)
	}

	acct, err := s.store.GetByID(ctx, claims.AccountID)
	if err != nil {
		if account.IsNotFound(err) {
			return account.Account{}, fmt.Errorf("%w: access token", ErrUnauthorized)
		}
		return account.Account{}, err
	}

	return sanitize(acct), nil
}

// GetAccount loads an account by id with secrets stripped.
func (s *Service) GetAccount(ctx context.Context, accountID string) (account.Account, error) {
	acct, err := s.store.GetByID(ctx, accountID)
	if err != nil {
		return account.Account{}, mapStoreErr(err)
	}
	return sanitize(acct), nil
}

func identityOf(acct account.Account) token.Identity {
	return token.Identity{
		AccountID: acct.ID,
		Email:     acct.Email,
		Username:  acct.Username,
		FullName:  acct.FullName,
	}
}

// sanitize strips server-side secrets before an account leaves this package.
func sanitize(acct account.Account) account.Account {
	acct.PasswordHash = ""
	acct.CurrentRefreshToken = nil
	return acct
}

func mapStoreErr(err error) error {
	var conflict account.ConflictError
	if errors.As(err, &conflict) {
		return ConflictError{Field: conflict.Field}
	}
	switch {
	case account.IsConflict(err):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case account.IsNotFound(err):
		return ErrNotFound
	case account.IsInvalidInput(err):
		return ValidationError{}
	default:
		return err
	}
}

func mapPasswordErr(err error) error {
	if errors.Is(err, password.ErrPasswordTooShort) || errors.Is(err, password.ErrPasswordTooLong) {
		return ValidationError{Fields: []string{"password"}}
	}
	return err
}
