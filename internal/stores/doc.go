// Package stores wraps the durable repositories used by the authentication
// flows with their lifecycle rules: single-use expiring one-time tokens and
// the append-only login attempt ledger.
//
// # Design
//
// One-time tokens are redeemed through an atomic claim on the repository,
// so two concurrent redemptions of the same token cannot both succeed. The
// ledger swallows write failures after logging them; recording an attempt
// must never change the outcome of the attempt itself.
//
// # What this package must NOT do
//
//   - Import tenantAuth or make authentication decisions.
//   - Log plaintext token values.
package stores
