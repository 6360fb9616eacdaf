// Package rate implements fixed-window rate limiting on top of a kv.Store.
//
// # Window semantics
//
// The first hit in a window creates the counter and stamps its expiry; later
// hits only increment. A burst straddling a window boundary can pass up to
// twice the limit. Keys are stored under the "rl:" prefix.
//
// # What this package must NOT do
//
//   - Decide which endpoints are limited (the engine owns the policy).
//   - Be imported outside the tenantAuth module.
package rate
