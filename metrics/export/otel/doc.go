// Package otel bridges an iammetrics registry into OpenTelemetry.
//
// [NewOTelExporter] creates one observable instrument per catalog counter and
// gauge, and bucket/count/sum counters for the request duration histogram.
// A single callback gathers the registry on each collection cycle and
// observes every series with its labels as attributes.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider; callers supply the Meter.
//   - Record into the registry.
package otel
