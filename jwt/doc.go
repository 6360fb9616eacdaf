// Package jwt issues and verifies the engine's access tokens: compact
// HMAC-signed JWTs carrying the user id, tenant id and slug, email and roles.
//
// Verify checks the signature and the expiry in one call; a correctly signed
// but expired token is rejected with [ErrExpired]. Every token carries a
// unique jti so it can be blacklisted after logout.
package jwt
