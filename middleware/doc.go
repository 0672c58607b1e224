// Package middleware exposes HTTP adapters over [parcelauth.Engine]
// bearer authentication.
//
// # Guards
//
//   - [Authenticate] — verifies the Authorization header when present and
//     attaches the identity to the request context; failures degrade the
//     request to anonymous.
//   - [RequireIdentity] — rejects anonymous requests with 401.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly (delegates to Engine).
//   - Access Redis.
//   - Make authorization decisions beyond pass/reject.
package middleware
