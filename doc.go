// Package parcelauth implements the session lifecycle for the parcel-sorting
// backend: signed JWT access tokens, rotating refresh tokens with a
// Redis-backed revocation ledger, and bearer authentication for request
// handling.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// parcelauth is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (TokenPair, Identity, MetricsSnapshot). Token signing lives
// in token/, ledger storage in ledger/, and supporting coordination — rate
// limiting, audit dispatch, metric storage — under internal/.
//
// # What this package must NOT do
//
//   - Expose Redis clients or key layouts in its public API.
//   - Perform I/O outside of Engine methods.
//   - Import any sub-package that re-imports parcelauth (no import cycles).
//
// # Performance contract
//
// Authenticate is the hot path. It verifies signatures locally and never
// touches Redis. Login, Refresh, and Logout are allowed one ledger
// round-trip each (plus throttle counters when enabled).
package parcelauth
