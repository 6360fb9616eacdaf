// Package session manages refresh tokens: opaque 32-byte credentials handed
// to the caller exactly once and persisted only as a SHA-256 hash.
//
// # Lifecycle
//
// issued -> valid -> revoked (terminal), or issued -> valid -> expired
// (terminal, time based). Nothing moves a token back to valid.
//
// # What this package must NOT do
//
//   - Persist or log plaintext refresh tokens.
//   - Interpret access tokens or enforce authentication policy.
package session
