package httpapi

import (
	"net/http"

	"smallcrm.org/internal/auth"
)

// Route policies are enforced here, after withIdentity has populated the
// context. Authentication failures and missing tokens both surface as the
// same 401; role mismatches as 403.

func (a *API) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.PrincipalFromContext(r.Context()); !ok {
			writeError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}
		next(w, r)
	}
}

func (a *API) requireRole(role auth.Role, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.PrincipalFromContext(r.Context())
		if !ok {
			writeError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}
		if !principal.HasRole(role) {
			writeError(w, r, http.StatusForbidden, "insufficient role")
			return
		}
		next(w, r)
	}
}
