// Package internal contains helper utilities that are private to tenantAuth,
// chiefly opaque token generation and token hashing.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - envconfig: environment and .env loading for the binaries
//   - logging: zap logger construction
//   - metrics: Prometheus counters and an in-process tally of engine operations
//   - rate: fixed-window rate limiting over a kv.Store
//   - revocation: access-token blacklist over a kv.Store
//   - stores: one-time token store and login attempt ledger
//
// # What this package must NOT do
//
//   - Export types that appear in the public tenantAuth API.
//   - Be imported by any package outside the tenantAuth module.
package internal
