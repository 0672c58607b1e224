package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	parcelauth "github.com/capstone/parcelauth"
)

// tokenResponse mirrors the wire shape clients already consume:
// expiresIn is the access token lifetime in milliseconds.
type tokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int64  `json:"expiresIn"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeTokenResponse(w http.ResponseWriter, pair parcelauth.TokenPair) {
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: pair.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   pair.AccessTTL.Milliseconds(),
	})
}

// writeEngineError maps engine sentinels onto HTTP statuses. Invalid
// credentials and unauthorized collapse into the same 401 so the
// boundary does not undo the engine's anti-enumeration behavior.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, parcelauth.ErrInvalidCredentials),
		errors.Is(err, parcelauth.ErrUnauthorized):
		writeErrorStatus(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, parcelauth.ErrAccountDisabled):
		writeErrorStatus(w, http.StatusForbidden, "account disabled")
	case errors.Is(err, parcelauth.ErrAccountLocked):
		writeErrorStatus(w, http.StatusForbidden, "account locked")
	case errors.Is(err, parcelauth.ErrLoginRateLimited),
		errors.Is(err, parcelauth.ErrRefreshRateLimited):
		w.Header().Set("Retry-After", "60")
		writeErrorStatus(w, http.StatusTooManyRequests, "too many requests")
	case errors.Is(err, parcelauth.ErrStoreUnavailable):
		w.Header().Set("Retry-After", "2")
		writeErrorStatus(w, http.StatusServiceUnavailable, "temporarily unavailable")
	default:
		writeErrorStatus(w, http.StatusInternalServerError, "internal error")
	}
}

func writeErrorStatus(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
