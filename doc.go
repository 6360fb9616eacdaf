// Package tenantAuth is a multi-tenant credential and session authority:
// it authenticates users scoped to a tenant, issues short-lived JWT access
// tokens and long-lived opaque refresh tokens, and runs the one-time token
// workflows for email verification and password reset.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// tenantAuth is the public surface. It exposes [Engine], [Builder], [Config], the error
// taxonomy ([KindOf], [PublicMessage]) and value types ([AuthResult], [UserProfile],
// [Introspection]). Durable records live behind the ports in store/; rate-limit counters
// and the access-token blacklist live behind kv.Store. Both are injected through the
// Builder, never selected at runtime inside business logic.
//
// # What this package must NOT do
//
//   - Persist or log plaintext refresh tokens.
//   - Let a best-effort side effect (email, audit, attempt ledger) change the outcome
//     of an operation.
//   - Cache users, tenants or tokens across calls.
package tenantAuth
