package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// bearerToken extracts the token from either "Authentication: Bearer
// <token>" (as named in §6) or the standard "Authorization: Bearer
// <token>" header, accepting both per the spec's auth-header open
// question.
func bearerToken(r *http.Request) string {
	for _, header := range []string{"Authentication", "Authorization"} {
		v := r.Header.Get(header)
		if v == "" {
			continue
		}
		const prefix = "Bearer "
		if strings.HasPrefix(v, prefix) {
			return strings.TrimPrefix(v, prefix)
		}
	}
	return ""
}

// requireAuth wraps next, rejecting requests whose bearer token does not
// match token with 401 (§8 invariant 10).
func requireAuth(token string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		got := bearerToken(r)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			writeError(w, http.StatusUnauthorized, "missing or invalid bearer token")
			return
		}
		next(w, r)
	}
}
