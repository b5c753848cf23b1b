// Package internaldefs holds the shared metric name and bucket definitions
// used by the exporter packages.
//
// Responsibilities:
//   - Map each authcore MetricID to a stable exposition name and help text.
//   - Provide the fixed latency bucket bounds in both numeric and
//     name-suffix form.
//
// This package must NOT:
//   - Perform I/O or depend on any exporter SDK.
package internaldefs
