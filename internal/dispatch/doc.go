// Package dispatch implements asynchronous hand-off of events from host
// goroutines to a single recording worker.
//
// # Components
//
//   - [Dispatcher]: buffered async relay that either drops or blocks when full.
//   - [Handler]: the consumer invoked for every delivered item.
//
// # Architecture boundaries
//
// This package owns buffering and delivery only. It does NOT decide what an
// event means; the root package's EventListener routes events to metrics.
//
// # What this package must NOT do
//
//   - Filter or suppress items based on their content.
//   - Import iammetrics or any sibling package.
package dispatch
