package token

import "errors"

var (
	// ErrExpired is returned when a token's expiry claim has elapsed.
	ErrExpired = errors.New("token expired")

	// ErrBadSignature is returned when a token fails signature checks or is
	// otherwise malformed (wrong algorithm, wrong issuer, missing claims).
	ErrBadSignature = errors.New("token signature invalid")

	// ErrConfig is returned for invalid token configuration.
	ErrConfig = errors.New("invalid token config")
)
