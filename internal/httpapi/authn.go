package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"kitabu.org/internal/tenant"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/metrics",
	"/healthz",
	"/readyz",
	"/v1/info",
	"/",
}

// withTenant resolves the tenant from the bearer token. Every /v1 handler
// below reads the tenant from the request context only.
func (a *API) withTenant(next http.Handler) http.Handler {
	if a == nil || a.verifier == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		tenantID, err := a.verifier.Verify(token)
		if err != nil {
			switch {
			case errors.Is(err, tenant.ErrInvalidToken), errors.Is(err, tenant.ErrNoTenant):
				writeError(w, r, http.StatusUnauthorized, "invalid token")
			default:
				writeError(w, r, http.StatusInternalServerError, "authentication error")
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(tenant.ContextWithID(r.Context(), tenantID)))
	})
}

// tenantID pulls the authenticated tenant out of the context. Handlers must
// not trust any tenant identifier in the request body or query.
func (a *API) tenantID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := tenant.IDFromContext(r.Context())
	if !ok || id == "" {
		writeError(w, r, http.StatusUnauthorized, "missing tenant")
		return "", false
	}
	return id, true
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

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
