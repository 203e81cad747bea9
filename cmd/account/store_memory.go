package account

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for dev mode and unit tests.
//
// It mirrors the Postgres semantics exactly: store-enforced uniqueness,
// compare-and-set rotation, idempotent clear. All mutation happens under a
// single mutex, which gives the same at-most-one-winner guarantee the
// conditional UPDATE gives in Postgres.
type MemoryStore struct {
	mu         sync.Mutex
	byID       map[string]*Account
	byUsername map[string]string // normalized username -> id
	byEmail    map[string]string // normalized email -> id
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[string]*Account),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
	}
}

// Create inserts a new account, enforcing username/email uniqueness.
func (s *MemoryStore) Create(ctx context.Context, in CreateInput) (Account, error) {
	const op = "account.Create"

	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	username := NormalizeUsername(in.Username)
	email := NormalizeEmail(in.Email)

	if username == "" || email == "" {
		return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "username and email are required"}
	}
	if strings.TrimSpace(in.PasswordHash) == "" {
		return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "password hash is required"}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := NewULID(now)
	if err != nil {
		return Account{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byUsername[username]; exists {
		return Account{}, ConflictError{Op: op, Field: "username"}
	}
	if _, exists := s.byEmail[email]; exists {
		return Account{}, ConflictError{Op: op, Field: "email"}
	}

	acct := &Account{
		ID:            id,
		Username:      username,
		Email:         email,
		FullName:      strings.TrimSpace(in.FullName),
		AvatarURL:     strings.TrimSpace(in.AvatarURL),
		CoverImageURL: strings.TrimSpace(in.CoverImageURL),
		WatchHistory:  []string{},
		PasswordHash:  in.PasswordHash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	s.byID[id] = acct
	s.byUsername[username] = id
	s.byEmail[email] = id

	return cloneAccount(acct), nil
}

// GetByID loads an account by id.
func (s *MemoryStore) GetByID(ctx context.Context, id string) (Account, error) {
	const op = "account.GetByID"
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.byID[strings.TrimSpace(id)]
	if !ok {
		return Account{}, OpError{Op: op, Kind: ErrNotFound}
	}
	return cloneAccount(acct), nil
}

// GetByUsername loads an account by normalized username.
func (s *MemoryStore) GetByUsername(ctx context.Context, username string) (Account, error) {
	const op = "account.GetByUsername"
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byUsername[NormalizeUsername(username)]
	if !ok {
		return Account{}, OpError{Op: op, Kind: ErrNotFound}
	}
	return cloneAccount(s.byID[id]), nil
}

// GetByEmail loads an account by normalized email.
func (s *MemoryStore) GetByEmail(ctx context.Context, email string) (Account, error) {
	const op = "account.GetByEmail"
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return Account{}, OpError{Op: op, Kind: ErrNotFound}
	}
	return cloneAccount(s.byID[id]), nil
}

// SetRefreshToken unconditionally overwrites the stored refresh token.
func (s *MemoryStore) SetRefreshToken(ctx context.Context, id string, token string, now time.Time) error {
	const op = "account.SetRefreshToken"
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" || strings.TrimSpace(token) == "" {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing id or token"}
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.byID[strings.TrimSpace(id)]
	if !ok {
		return OpError{Op: op, Kind: ErrNotFound}
	}
	t := token
	acct.CurrentRefreshToken = &t
	acct.UpdatedAt = now
	return nil
}

// RotateRefreshToken performs the compare-and-set under the store mutex.
func (s *MemoryStore) RotateRefreshToken(ctx context.Context, id string, oldToken, newToken string, now time.Time) error {
	const op = "account.RotateRefreshToken"
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" || strings.TrimSpace(oldToken) == "" || strings.TrimSpace(newToken) == "" {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing id or token"}
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.byID[strings.TrimSpace(id)]
	if !ok {
		return OpError{Op: op, Kind: ErrStaleToken}
	}
	if acct.CurrentRefreshToken == nil || *acct.CurrentRefreshToken != oldToken {
		return OpError{Op: op, Kind: ErrStaleToken}
	}
	t := newToken
	acct.CurrentRefreshToken = &t
	acct.UpdatedAt = now
	return nil
}

// ClearRefreshToken sets the stored refresh token to nil (idempotent).
func (s *MemoryStore) ClearRefreshToken(ctx context.Context, id string, now time.Time) error {
	const op = "account.ClearRefreshToken"
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing id"}
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.byID[strings.TrimSpace(id)]
	if !ok {
		return OpError{Op: op, Kind: ErrNotFound}
	}
	acct.CurrentRefreshToken = nil
	acct.UpdatedAt = now
	return nil
}

// UpdatePasswordHash persists a re-hashed password.
func (s *MemoryStore) UpdatePasswordHash(ctx context.Context, id string, passwordHash string, now time.Time) error {
	const op = "account.UpdatePasswordHash"
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" || strings.TrimSpace(passwordHash) == "" {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing id or hash"}
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.byID[strings.TrimSpace(id)]
	if !ok {
		return OpError{Op: op, Kind: ErrNotFound}
	}
	acct.PasswordHash = passwordHash
	acct.UpdatedAt = now
	return nil
}

func cloneAccount(a *Account) Account {
	out := *a
	if a.CurrentRefreshToken != nil {
		t := *a.CurrentRefreshToken
		out.CurrentRefreshToken = &t
	}
	out.WatchHistory = append([]string(nil), a.WatchHistory...)
	if out.WatchHistory == nil {
		out.WatchHistory = []string{}
	}
	return out
}
