package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	pkgerrors "portfolio/pkg/errors"
)

// AdminTokenHeader is the alternative to a bearer Authorization header
const AdminTokenHeader = "X-Admin-Token"

// RequireAdmin rejects requests that do not present token. An empty token
// disables the check.
func RequireAdmin(token string, errorHandler *pkgerrors.ErrorHandler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		want := []byte(token)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := presentedToken(r)
			if got == "" {
				errorHandler.Handle(w, r, pkgerrors.NewUnauthorizedError("Admin token required"))
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				errorHandler.Handle(w, r, pkgerrors.NewUnauthorizedError("Invalid admin token"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func presentedToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if scheme, value, ok := strings.Cut(auth, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(value)
		}
	}
	return strings.TrimSpace(r.Header.Get(AdminTokenHeader))
}
