// Package auth decides whether a request may use the portrait endpoints.
package auth

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"os"
	"strings"
)

const EnvAccessTokens = "PAWTRAIT_ACCESS_TOKENS"

// Authorizer answers whether an opaque bearer credential is allowed.
type Authorizer interface {
	Authorize(credential string) bool
}

// TokenAuthorizer accepts a fixed set of tokens. With no tokens configured
// every request is allowed.
type TokenAuthorizer struct {
	tokens [][]byte
}

func NewTokenAuthorizer(tokens []string) *TokenAuthorizer {
	a := &TokenAuthorizer{}
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			a.tokens = append(a.tokens, []byte(t))
		}
	}
	return a
}

// FromEnv reads comma separated tokens from PAWTRAIT_ACCESS_TOKENS.
func FromEnv() *TokenAuthorizer {
	return NewTokenAuthorizer(strings.Split(os.Getenv(EnvAccessTokens), ","))
}

// Enabled reports whether any token is configured.
func (a *TokenAuthorizer) Enabled() bool {
	return len(a.tokens) > 0
}

func (a *TokenAuthorizer) Authorize(credential string) bool {
	if !a.Enabled() {
		return true
	}
	c := []byte(credential)
	ok := 0
	for _, t := range a.tokens {
		ok |= subtle.ConstantTimeCompare(c, t)
	}
	return ok == 1
}

// BearerToken extracts the credential from an Authorization header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}

// Middleware rejects requests the authorizer does not accept with 401.
func Middleware(a Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !a.Authorize(BearerToken(r)) {
				slog.Warn("Unauthorized request", "path", r.URL.Path, "remote", r.RemoteAddr)
				w.Header().Set("WWW-Authenticate", `Bearer realm="pawtrait"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
