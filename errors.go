package parcelauth

import "errors"

var (
	// ErrUnauthorized is returned when a token fails verification or its
	// refresh record is no longer in the ledger. Callers must not be able
	// to distinguish why.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials is returned for any login failure against a
	// subject/password pair, including unknown subjects.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned by UserProvider implementations when no
	// account matches the normalized subject. The engine collapses it into
	// ErrInvalidCredentials before it reaches a caller.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountDisabled is returned when the account exists and the
	// password matches but the account is administratively disabled.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrAccountLocked is returned when the account exists and the
	// password matches but the account is locked.
	ErrAccountLocked = errors.New("account locked")
	// ErrLoginRateLimited is returned when the login throttle for the
	// subject or client IP is exhausted.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrRefreshRateLimited is returned when the refresh throttle for a
	// token id is exhausted.
	ErrRefreshRateLimited = errors.New("refresh rate limited")
	// ErrStoreUnavailable is returned when the revocation ledger cannot be
	// reached. It is the only retryable error the engine produces.
	ErrStoreUnavailable = errors.New("revocation ledger unavailable")
	// ErrEngineNotReady is returned by the builder when mandatory
	// components are missing.
	ErrEngineNotReady = errors.New("engine not initialized")
)
