// Package ledger implements the Redis-backed revocation ledger for refresh
// tokens: one key per live jti, TTL equal to the token's remaining
// lifetime, and an atomic consume primitive that makes rotation single-use
// even under concurrent refresh attempts.
//
// # Key layout
//
//	RTJTI:<jti> → userID (string), PX = remaining refresh lifetime
//
// # What this package must NOT do
//
//   - Parse or verify tokens (package token owns that).
//   - Retry or mask transport failures: every Redis error surfaces as
//     [ErrUnavailable] so callers can distinguish outage from revocation.
package ledger
