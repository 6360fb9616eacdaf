// Package middleware adapts tenantAuth.Engine to net/http.
//
// # Handlers
//
//   - [ClientInfo] records the caller's IP and User-Agent in the request
//     context so Engine operations can rate limit and audit them.
//   - [Guard] requires a valid bearer access token and stores the resulting
//     [tenantAuth.Principal] in the request context.
//   - [RequireRole] rejects principals without a role.
//
// [StatusFor] and [WriteError] translate Engine failure kinds to HTTP
// status codes and JSON bodies. Only [tenantAuth.PublicMessage] text is ever
// written, so store and driver errors never reach the client.
//
// This package makes no authentication decisions of its own.
package middleware
