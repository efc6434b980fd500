// Package prometheus serves an iammetrics registry over HTTP.
//
// [NewPrometheusExporter] wraps a registry and exposes an [http.Handler] that
// renders every registered family in text exposition format 0.0.4. When built
// with [WithSessions], each scrape refreshes the active-session gauges first.
//
// # What this package must NOT do
//
//   - Register collectors; the registry owns registration.
//   - Send partial bodies on export failure.
package prometheus
