package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	parcelauth "github.com/capstone/parcelauth"
)

// Handler exposes the session lifecycle over HTTP. Refresh tokens travel
// in an HttpOnly cookie shaped by [parcelauth.CookieConfig]; access
// tokens travel in JSON response bodies and never in cookies.
type Handler struct {
	engine *parcelauth.Engine
	config parcelauth.Config
}

// NewHandler wires the engine behind the /auth endpoints. The config
// must be the same tree the engine was built with; the handler reads
// only Cookie and Token.RefreshTTL from it.
func NewHandler(engine *parcelauth.Engine, cfg parcelauth.Config) *Handler {
	return &Handler{
		engine: engine,
		config: cfg,
	}
}

// Routes returns a router with the three lifecycle endpoints:
//
//	POST /auth/login
//	POST /auth/token/refresh
//	POST /auth/logout
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/token/refresh", h.handleRefresh)
	r.Post("/auth/logout", h.handleLogout)
	return r
}

type loginRequest struct {
	Subject  string `json:"subject"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "malformed request body")
		return
	}

	pair, err := h.engine.Login(requestContext(r), body.Subject, body.Password)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	writeTokenResponse(w, pair)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	cred := resolveCredential(r, h.config.Cookie.Name)
	if cred.Source == SourceNone {
		writeErrorStatus(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	pair, err := h.engine.Refresh(requestContext(r), cred.Token)
	if err != nil {
		// A dead token means the cookie is dead too. Outages and
		// throttles leave the token live, so the cookie stays.
		if cred.Source == SourceCookie && errors.Is(err, parcelauth.ErrUnauthorized) {
			h.clearRefreshCookie(w)
		}
		writeEngineError(w, err)
		return
	}

	if cred.Source == SourceCookie {
		h.setRefreshCookie(w, pair.RefreshToken)
	}
	writeTokenResponse(w, pair)
}

// handleLogout clears the refresh cookie unconditionally and revokes the
// presented token best-effort. The response is 200 regardless of ledger
// outcome: from the client's point of view the session is gone either
// way.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	cred := resolveCredential(r, h.config.Cookie.Name)

	if cred.Source != SourceNone {
		_ = h.engine.Logout(requestContext(r), cred.Token)
	}

	h.clearRefreshCookie(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("{}\n"))
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, h.refreshCookie(token, int(h.config.Token.RefreshTTL.Seconds())))
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, h.refreshCookie("", -1))
}

func (h *Handler) refreshCookie(value string, maxAge int) *http.Cookie {
	cc := h.config.Cookie
	return &http.Cookie{
		Name:     cc.Name,
		Value:    value,
		Path:     cc.Path,
		Domain:   cc.Domain,
		MaxAge:   maxAge,
		Secure:   cc.Secure,
		HttpOnly: cc.HTTPOnly,
		SameSite: cc.SameSite,
	}
}

// requestContext attaches the client IP for throttling and audit.
func requestContext(r *http.Request) context.Context {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return parcelauth.WithClientIP(r.Context(), host)
}
