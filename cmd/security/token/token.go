package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the account identity embedded in access tokens.
type Identity struct {
	AccountID string
	Email     string
	Username  string
	FullName  string
}

// AccessClaims is the verified content of an access token.
type AccessClaims struct {
	Identity
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// RefreshClaims is the verified content of a refresh token.
// Refresh tokens carry the minimal surface: account id only.
type RefreshClaims struct {
	AccountID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Service issues and verifies both token kinds.
type Service struct {
	cfg Config
}

// NewService validates cfg and constructs a Service.
func NewService(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Service{cfg: cfg}, nil
}

type accessJWTClaims struct {
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	FullName string `json:"fullName,omitempty"`
	jwt.RegisteredClaims
}

type refreshJWTClaims struct {
	jwt.RegisteredClaims
}

// IssueAccess signs a short-lived access token for id.
func (s *Service) IssueAccess(id Identity, now time.Time) (string, time.Time, error) {
	if s == nil {
		return "", time.Time{}, ErrConfig
	}
	if strings.TrimSpace(id.AccountID) == "" {
		return "", time.Time{}, ErrConfig
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	exp := now.Add(s.cfg.AccessTTL)

	claims := accessJWTClaims{
		Email:    id.Email,
		Username: id.Username,
		FullName: id.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   id.AccountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.AccessSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// IssueRefresh signs a long-lived refresh token for accountID.
func (s *Service) IssueRefresh(accountID string, now time.Time) (string, time.Time, error) {
	if s == nil {
		return "", time.Time{}, ErrConfig
	}
	if strings.TrimSpace(accountID) == "" {
		return "", time.Time{}, ErrConfig
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	exp := now.Add(s.cfg.RefreshTTL)

	claims := refreshJWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.RefreshSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// VerifyAccess checks signature + expiry of an access token and returns
// its claims. This never consults storage.
func (s *Service) VerifyAccess(tokenStr string, now time.Time) (AccessClaims, error) {
	if s == nil {
		return AccessClaims{}, ErrConfig
	}

	var claims accessJWTClaims
	if err := s.parse(tokenStr, &claims, s.cfg.AccessSecret, now); err != nil {
		return AccessClaims{}, err
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return AccessClaims{}, ErrBadSignature
	}

	return AccessClaims{
		Identity: Identity{
			AccountID: claims.Subject,
			Email:     claims.Email,
			Username:  claims.Username,
			FullName:  claims.FullName,
		},
		IssuedAt:  numericTime(claims.IssuedAt),
		ExpiresAt: numericTime(claims.ExpiresAt),
	}, nil
}

// VerifyRefresh checks signature + expiry of a refresh token and returns
// its claims. The stored-value match is the session manager's job.
func (s *Service) VerifyRefresh(tokenStr string, now time.Time) (RefreshClaims, error) {
	if s == nil {
		return RefreshClaims{}, ErrConfig
	}

	var claims refreshJWTClaims
	if err := s.parse(tokenStr, &claims, s.cfg.RefreshSecret, now); err != nil {
		return RefreshClaims{}, err
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return RefreshClaims{}, ErrBadSignature
	}

	return RefreshClaims{
		AccountID: claims.Subject,
		IssuedAt:  numericTime(claims.IssuedAt),
		ExpiresAt: numericTime(claims.ExpiresAt),
	}, nil
}

func (s *Service) parse(tokenStr string, claims jwt.Claims, secret []byte, now time.Time) error {
	tokenStr = strings.TrimSpace(tokenStr)
	// Sanity bounds to avoid pathological inputs.
	if tokenStr == "" || len(tokenStr) > 4096 {
		return ErrBadSignature
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	parsed, err := jwt.ParseWithClaims(
		tokenStr,
		claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrBadSignature
			}
			return secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpired
		}
		return ErrBadSignature
	}
	if !parsed.Valid {
		return ErrBadSignature
	}
	return nil
}

func numericTime(d *jwt.NumericDate) time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}
