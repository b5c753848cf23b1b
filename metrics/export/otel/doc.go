// Package otel provides OpenTelemetry metric exporter bindings for authcore counters and
// histograms.
//
// [NewOTelExporter] registers Int64ObservableCounter instruments for each authcore metric
// and observable gauges for the latency histogram buckets, reading from
// [authcore.Engine.MetricsSnapshot] on each collection cycle.
//
// This package must NOT:
//   - Own the OTel MeterProvider; callers supply the Meter.
package otel
