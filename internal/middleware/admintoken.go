package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// HeaderAdminToken carries the operator token on admin endpoints.
const HeaderAdminToken = "X-Admin-Token"

// AdminToken returns middleware that requires the operator token, sent as
// X-Admin-Token or as a bearer token. token is read per request so a reloaded
// value applies immediately. With no token configured the guarded routes are
// disabled.
func AdminToken(token func() string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			want := ""
			if token != nil {
				want = token()
			}
			if want == "" {
				writeJSONError(w, http.StatusServiceUnavailable, "admin token not configured")
				return
			}

			got := r.Header.Get(HeaderAdminToken)
			if got == "" {
				got = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
				writeJSONError(w, http.StatusUnauthorized, "invalid admin token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}` + "\n"))
}
