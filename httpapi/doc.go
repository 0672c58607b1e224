// Package httpapi is the HTTP boundary over [parcelauth.Engine]: JSON
// login, cookie-carried refresh rotation, and best-effort logout.
//
// # Endpoints
//
//   - POST /auth/login — JSON {"subject","password"} in,
//     {"accessToken","tokenType","expiresIn"} out, refresh cookie set.
//   - POST /auth/token/refresh — refresh cookie (or bearer fallback) in,
//     same response shape out, cookie rewritten with the rotated token.
//   - POST /auth/logout — clears the cookie unconditionally and revokes
//     the ledger record best-effort; always 200.
//
// # Architecture boundaries
//
// This package translates HTTP and cookie semantics into Engine calls.
// Refresh tokens never appear in response bodies or logs; access tokens
// never appear in cookies.
package httpapi
