package account

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over PostgreSQL.
//
// Design notes:
// - The pgx pool is owned by the caller; this store must NOT close it.
// - Schema/table identifiers are safely quoted to avoid injection via identifiers.
// - RotateRefreshToken is a single conditional UPDATE: the WHERE clause
//   carries the compare of the compare-and-set, so two racing rotations can
//   never both succeed (row-level locking serializes the writes).
// - Errors are mapped to account sentinel kinds where appropriate.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the account store (default "streamhub").
// The schema name is validated to be a legal PostgreSQL identifier.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("account: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("account: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore with secure defaults.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "streamhub",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("account: nil pool")
	}
	return st, nil
}

const accountColumns = `id, username, email, full_name, avatar_url, cover_image_url,
	        watch_history, password_hash, current_refresh_token, created_at, updated_at`

// Create inserts a new account row.
// The unique indexes on username and email are authoritative; a duplicate
// insert surfaces as ConflictError regardless of any caller pre-check.
func (s *PostgresStore) Create(ctx context.Context, in CreateInput) (Account, error) {
	const op = "account.Create"

	if s == nil || s.pool == nil {
		return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
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

	accounts := pgIdent(s.schema, "accounts")

	_, err = s.pool.Exec(ctx,
		`INSERT INTO `+accounts+` (
		     id, username, email, full_name, avatar_url, cover_image_url,
		     watch_history, password_hash, current_refresh_token, created_at, updated_at
		   ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL, $9, $9)`,
		id,
		username,
		email,
		strings.TrimSpace(in.FullName),
		strings.TrimSpace(in.AvatarURL),
		strings.TrimSpace(in.CoverImageURL),
		[]string{},
		in.PasswordHash,
		now,
	)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return Account{}, ConflictError{Op: op, Field: field}
		}
		return Account{}, err
	}

	return Account{
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
	}, nil
}

// GetByID loads an account by id.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (Account, error) {
	const op = "account.GetByID"
	return s.getBy(ctx, op, "id = $1", strings.TrimSpace(id))
}

// GetByUsername loads an account by normalized username.
func (s *PostgresStore) GetByUsername(ctx context.Context, username string) (Account, error) {
	const op = "account.GetByUsername"
	return s.getBy(ctx, op, "username = $1", NormalizeUsername(username))
}

// GetByEmail loads an account by normalized email.
func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (Account, error) {
	const op = "account.GetByEmail"
	return s.getBy(ctx, op, "email = $1", NormalizeEmail(email))
}

func (s *PostgresStore) getBy(ctx context.Context, op, where, arg string) (Account, error) {
	if s == nil || s.pool == nil {
		return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	if arg == "" {
		return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing lookup key"}
	}

	accounts := pgIdent(s.schema, "accounts")

	var out Account
	err := s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+`
		   FROM `+accounts+`
		  WHERE `+where,
		arg,
	).Scan(
		&out.ID,
		&out.Username,
		&out.Email,
		&out.FullName,
		&out.AvatarURL,
		&out.CoverImageURL,
		&out.WatchHistory,
		&out.PasswordHash,
		&out.CurrentRefreshToken,
		&out.CreatedAt,
		&out.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, OpError{Op: op, Kind: ErrNotFound}
		}
		return Account{}, err
	}
	if out.WatchHistory == nil {
		out.WatchHistory = []string{}
	}
	return out, nil
}

// SetRefreshToken unconditionally overwrites the stored refresh token.
// Used by login: the new session silently replaces any prior one.
func (s *PostgresStore) SetRefreshToken(ctx context.Context, id string, token string, now time.Time) error {
	const op = "account.SetRefreshToken"

	if s == nil || s.pool == nil {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" || strings.TrimSpace(token) == "" {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing id or token"}
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	accounts := pgIdent(s.schema, "accounts")

	ct, err := s.pool.Exec(ctx,
		`UPDATE `+accounts+`
		    SET current_refresh_token = $1,
		        updated_at = $2
		  WHERE id = $3`,
		token, now, id,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return OpError{Op: op, Kind: ErrNotFound}
	}
	return nil
}

// RotateRefreshToken replaces oldToken with newToken only while oldToken is
// still the stored value. The compare lives in the WHERE clause, so a lost
// race (or a replayed token) affects zero rows and returns ErrStaleToken
// without touching state.
func (s *PostgresStore) RotateRefreshToken(ctx context.Context, id string, oldToken, newToken string, now time.Time) error {
	const op = "account.RotateRefreshToken"

	if s == nil || s.pool == nil {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" || strings.TrimSpace(oldToken) == "" || strings.TrimSpace(newToken) == "" {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing id or token"}
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	accounts := pgIdent(s.schema, "accounts")

	ct, err := s.pool.Exec(ctx,
		`UPDATE `+accounts+`
		    SET current_refresh_token = $1,
		        updated_at = $2
		  WHERE id = $3
		    AND current_refresh_token = $4`,
		newToken, now, id, oldToken,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		// Missing account, cleared token, or a concurrent rotation won.
		// One indistinguishable failure to avoid token probing.
		return OpError{Op: op, Kind: ErrStaleToken}
	}
	return nil
}

// ClearRefreshToken sets the stored refresh token to NULL (logout).
// Clearing an already-clear token is not an error.
func (s *PostgresStore) ClearRefreshToken(ctx context.Context, id string, now time.Time) error {
	const op = "account.ClearRefreshToken"

	if s == nil || s.pool == nil {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing id"}
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	accounts := pgIdent(s.schema, "accounts")

	ct, err := s.pool.Exec(ctx,
		`UPDATE `+accounts+`
		    SET current_refresh_token = NULL,
		        updated_at = $1
		  WHERE id = $2`,
		now, id,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return OpError{Op: op, Kind: ErrNotFound}
	}
	return nil
}

// UpdatePasswordHash persists a re-hashed password.
func (s *PostgresStore) UpdatePasswordHash(ctx context.Context, id string, passwordHash string, now time.Time) error {
	const op = "account.UpdatePasswordHash"

	if s == nil || s.pool == nil {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" || strings.TrimSpace(passwordHash) == "" {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing id or hash"}
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	accounts := pgIdent(s.schema, "accounts")

	ct, err := s.pool.Exec(ctx,
		`UPDATE `+accounts+`
		    SET password_hash = $1,
		        updated_at = $2
		  WHERE id = $3`,
		passwordHash, now, id,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return OpError{Op: op, Kind: ErrNotFound}
	}
	return nil
}

// ---- helpers ----

// pgIdent safely quotes a schema-qualified identifier: "schema"."name".
func pgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	// Prefer stable schema constraint names; fall back to substring matching.
	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))

	switch c {
	case "uq_accounts_username":
		return "username", true
	case "uq_accounts_email":
		return "email", true
	default:
		switch {
		case strings.Contains(c, "username"):
			return "username", true
		case strings.Contains(c, "email"):
			return "email", true
		default:
			return "unique", true
		}
	}
}
