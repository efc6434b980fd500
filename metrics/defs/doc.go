// Package defs holds the static declarations of every metric in the iammetrics
// catalog: name, help text, label schema, kind and histogram buckets.
//
// Definitions live here so that the registry, the Prometheus scrape handler
// and the OTel bridge share identical names and label orders. Changes to
// definitions in this package affect all exporters simultaneously.
//
// # What this package must NOT do
//
//   - Import iammetrics or any exporter package.
//   - Hold metric state or perform I/O.
package defs
