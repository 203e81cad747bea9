// Package account implements streamhub's credential store.
//
// It defines the Account record (the sole entity of the auth core), the
// Store persistence boundary, and two implementations: Postgres (pgx) and
// in-memory (dev/tests). Username and email uniqueness is enforced by the
// store itself, never by a pre-check alone.
package account
