package account

import (
	"context"
	"time"
)

// Account is streamhub's canonical principal.
//
// PasswordHash and CurrentRefreshToken are server-side secrets: they never
// leave this core. API layers must serialize accounts through their own
// response models, which carry neither field.
type Account struct {
	ID       string
	Username string
	Email    string

	FullName      string
	AvatarURL     string
	CoverImageURL string

	// WatchHistory holds opaque content references owned by the content
	// subsystem. The auth core only round-trips it.
	WatchHistory []string

	// PasswordHash is a PHC-encoded argon2id hash, never the plaintext.
	PasswordHash string

	// CurrentRefreshToken is the single live refresh token for the account.
	// nil means "no active session".
	CurrentRefreshToken *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateInput describes a registration request as the store sees it.
// All identity fields must already be trimmed/normalized by the caller;
// PasswordHash must already be hashed (the store never sees plaintext).
type CreateInput struct {
	Username      string
	Email         string
	FullName      string
	AvatarURL     string
	CoverImageURL string
	PasswordHash  string
	Now           time.Time
}

// Store is the credential persistence boundary.
//
// Uniqueness of username/email is authoritative here: implementations must
// surface duplicate writes as ConflictError even when callers pre-checked.
type Store interface {
	// Create inserts a new account. Returns ConflictError on duplicate
	// username or email.
	Create(ctx context.Context, in CreateInput) (Account, error)

	// GetByID loads an account by its opaque id. Returns ErrNotFound.
	GetByID(ctx context.Context, id string) (Account, error)

	// GetByUsername loads an account by normalized username. Returns ErrNotFound.
	GetByUsername(ctx context.Context, username string) (Account, error)

	// GetByEmail loads an account by normalized email. Returns ErrNotFound.
	GetByEmail(ctx context.Context, email string) (Account, error)

	// SetRefreshToken unconditionally overwrites the stored refresh token
	// (login path: a new session silently replaces any prior one).
	SetRefreshToken(ctx context.Context, id string, token string, now time.Time) error

	// RotateRefreshToken replaces oldToken with newToken only if oldToken is
	// still the stored value (compare-and-set). Returns ErrStaleToken when
	// the stored value no longer matches; at most one of two racing
	// rotations can succeed.
	RotateRefreshToken(ctx context.Context, id string, oldToken, newToken string, now time.Time) error

	// ClearRefreshToken sets the stored refresh token to null. Idempotent.
	ClearRefreshToken(ctx context.Context, id string, now time.Time) error

	// UpdatePasswordHash persists a re-hashed password.
	UpdatePasswordHash(ctx context.Context, id string, passwordHash string, now time.Time) error
}
