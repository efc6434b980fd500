// Package iammetrics counts the activity of an identity-and-access-management
// server and exposes it in the Prometheus text exposition format.
//
// The package is designed for concurrent server workloads: every Record*
// operation and Export are safe to call from any number of goroutines without
// external locking.
//
// # Metrics
//
// The schema is fixed (see [github.com/MrEthical07/iammetrics/metrics/defs]):
// logins, failed logins, registrations, user and admin events, response
// errors, request durations and active sessions per client.
//
// # Registry lifecycle
//
// [Default] builds the process-wide [Registry] on first use and registers it
// with the Prometheus default registerer. [New] returns a [Builder] for
// registries bound to a caller-owned prometheus.Registry. A duplicate metric
// registration is a fatal startup error.
//
// # Architecture boundaries
//
// iammetrics is the public surface: [Registry], [Builder], [Config], the
// event types and [EventListener]. Transport lives elsewhere: the scrape
// handler in metrics/export/prometheus, HTTP instrumentation in middleware,
// the Redis realm/session directory in session, the NATS event source in
// eventsource/natsbus.
//
// # What this package must NOT do
//
//   - Poll or subscribe to event sources; it only reacts to calls.
//   - Evict series or reset counters.
//   - Impose timeouts on exports beyond Config.Refresh.Timeout.
package iammetrics
