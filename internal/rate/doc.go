// Package rate implements fixed-window request budgets on Redis counters.
//
// The metrics daemon uses it to bound how many events one source may post
// to the ingest endpoint per window. The first hit in a window sets the TTL;
// the counter expires with the window.
//
// # What this package must NOT do
//
//   - Decide how to respond to a rejected request; callers map
//     [ErrRateLimited] to their transport.
package rate
