// Package password implements streamhub's password hashing.
//
// Hashes are Argon2id in PHC string format. Verification is strict
// (exact PHC parsing, anti-DoS parameter bounds) and constant-time on the
// derived key. The Hasher type additionally bounds hashing concurrency so
// CPU-bound work cannot starve unrelated request handling.
//
// Plaintext passwords are never logged and never persisted.
package password
