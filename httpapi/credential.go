package httpapi

import (
	"net/http"
	"strings"
)

// CredentialSource says where a refresh credential came from. The
// distinction matters for cookie rewriting: only cookie-sourced
// credentials get a rotated cookie back.
type CredentialSource uint8

const (
	SourceNone CredentialSource = iota
	SourceCookie
	SourceBearer
)

// Credential is a resolved refresh credential. Token is empty when
// Source is SourceNone.
type Credential struct {
	Source CredentialSource
	Token  string
}

// resolveCredential picks the refresh token for a request: the cookie
// wins, the Authorization header is the fallback for non-browser
// clients.
func resolveCredential(r *http.Request, cookieName string) Credential {
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return Credential{Source: SourceCookie, Token: cookie.Value}
	}

	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return Credential{Source: SourceBearer, Token: token}
	}

	return Credential{Source: SourceNone}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
