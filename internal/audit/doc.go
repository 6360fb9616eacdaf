// Package audit buffers security events and hands them to a sink off the
// request path.
//
// # Components
//
//   - [Event]: one record per protocol outcome (login, refresh, logout,
//     reset, verification, tenant changes).
//   - [Sink]: consumer interface, with JSON-lines, channel, zap and no-op
//     implementations.
//   - [Dispatcher]: bounded queue in front of a sink that either drops or
//     blocks when full.
//
// # What this package must NOT do
//
//   - Decide which events to emit; the engine does that.
//   - Import tenantAuth.
//   - Carry plaintext credentials in events.
package audit
