// Package rate provides Redis-backed fixed-window rate limit primitives
// for login and refresh throttling.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - al:  — login per-subject
//   - ali: — login per-IP
//   - ar:  — refresh per-token-id
//
// # What this package must NOT do
//
//   - Decide which errors are exposed to callers (the Engine maps them).
//   - Be imported outside the parcelauth module.
package rate
