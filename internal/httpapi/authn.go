package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"smallcrm.org/internal/auth"
	"smallcrm.org/internal/obs"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// withIdentity populates the request context with the authenticated principal
// when a valid bearer token is presented. It never rejects: requests without
// a token, or with a bad one, continue unauthenticated and are turned away by
// the per-route policy instead.
func (a *API) withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		principal, err := a.auth.AuthenticateToken(r.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				obs.LogEvent("warn", "bearer token rejected", map[string]any{
					"reason":     auth.DecodeFailureReason(err),
					"path":       r.URL.Path,
					"request_id": RequestIDFromContext(r.Context()),
				})
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
