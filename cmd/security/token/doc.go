// Package token implements streamhub's signed-token service.
//
// Two token kinds are issued, both HS256 JWTs with an expiry claim:
//
//   - access: carries the account identity (id, email, username, full name)
//     and a short TTL; verified statelessly by signature + expiry.
//   - refresh: carries the account id only and a long TTL; in addition to
//     signature + expiry it must match the value stored on the account,
//     a check owned by the session manager, not this package.
//
// The two kinds are signed with distinct secrets that must never be shared.
// This package is pure: config + claims in, token strings out; no I/O.
package token
