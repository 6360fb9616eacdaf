// Package metrics exposes engine counters to Prometheus and keeps a
// process-local Tally of the same events for snapshot-based exporters.
//
// A nil *Recorder or *Tally is valid and records nothing, so callers never
// branch on whether metrics are enabled.
//
// # What this package must NOT do
//
//   - Register collectors on the global default registry implicitly.
//   - Import tenantAuth.
package metrics
