// Package middleware provides the HTTP middleware of the metrics daemon.
//
//   - [Instrument] feeds request durations and error responses into a recorder.
//   - [RequireScrapeToken] guards the scrape endpoint with a bearer token.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into recorder and verifier calls. It
// does NOT parse tokens itself and does NOT own metric definitions.
package middleware
