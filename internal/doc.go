// Package internal groups helper packages that are intentionally private
// to parcelauth.
//
// # Sub-packages
//
//   - audit — async event dispatch (Dispatcher + Sink implementations)
//   - metrics — lock-free counters and latency histograms
//   - rate — Redis-backed fixed-window rate limit primitives
//
// # What this package must NOT do
//
//   - Export types that appear in the public parcelauth API.
//   - Be imported by any package outside the parcelauth module.
package internal
