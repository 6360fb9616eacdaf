// Package otel publishes tenantAuth operation counts through an
// OpenTelemetry Meter.
//
// [NewExporter] registers observable counters and a single callback that
// reads [tenantAuth.Engine.MetricsSnapshot] on each collection cycle. The
// caller owns the MeterProvider; the exporter never mutates engine state.
package otel
