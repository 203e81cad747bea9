// Package session implements streamhub's account-session lifecycle.
//
// It composes the credential store, the password hasher, and the token
// service into the five high-level operations: register, login, refresh,
// logout, and change-password. Each account holds at most one live refresh
// token; login overwrites it, logout clears it, and refresh replaces it with
// a compare-and-set so a replayed or raced token loses deterministically.
//
// Errors leave this package classified under a closed taxonomy
// (validation, conflict, not-found, unauthorized); the HTTP layer maps the
// taxonomy to status codes without inspecting causes.
package session
