/*
auth.go - Bearer authentication middleware

PURPOSE:
  Extracts the bearer credential (Authorization header, cookie as a
  fallback), resolves it to an identity.Principal through the identity
  service, and stores the principal in the request context. Handlers
  read it back with principalFrom; the engine itself never touches the
  ambient context for identity.

SEE ALSO:
  - identity/bootstrap.go: Authentication and user provisioning
*/
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/warp/hours-bank/identity"
)

type contextKey string

const principalKey contextKey = "principal"

// RequireAuth authenticates every request and injects the principal.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bearer := bearerToken(r)
		if bearer == "" {
			writeError(w, http.StatusUnauthorized, "Missing bearer credential", nil)
			return
		}

		principal, err := h.Identity.Authenticate(r.Context(), bearer)
		if err != nil {
			status := http.StatusUnauthorized
			message := "Invalid bearer credential"
			if errors.Is(err, identity.ErrNotAuthorized) {
				status = http.StatusForbidden
				message = "User is not authorized for this workspace"
			}
			writeError(w, status, message, err)
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin gates admin-only routes. Must run after RequireAuth.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !principalFrom(r).IsAdmin() {
			writeError(w, http.StatusForbidden, "Admin role required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func principalFrom(r *http.Request) identity.Principal {
	p, _ := r.Context().Value(principalKey).(identity.Principal)
	return p
}

func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}
	if cookie, err := r.Cookie("token"); err == nil {
		return cookie.Value
	}
	return ""
}
