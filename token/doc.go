// Package token encodes and verifies the self-contained signed credentials
// used by the parcel backend: short-lived access tokens and long-lived
// rotating refresh tokens, discriminated by a typed kind claim.
package token
