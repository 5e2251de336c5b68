package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
)

// BasicAuth returns middleware that enforces HTTP basic auth against a
// single configured credential pair.
//
// Both username and password are compared in constant time, and both
// comparisons always run, so response timing does not reveal which of
// the two was wrong.
func BasicAuth(user, password string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUser, gotPass, ok := r.BasicAuth()
			if ok {
				userMatch := subtle.ConstantTimeCompare([]byte(gotUser), []byte(user))
				passMatch := subtle.ConstantTimeCompare([]byte(gotPass), []byte(password))
				if userMatch&passMatch == 1 {
					next.ServeHTTP(w, r)
					return
				}
			}

			slog.Warn("auth: rejected request",
				"path", r.URL.Path,
				"method", r.Method,
				"remote_addr", r.RemoteAddr,
			)
			w.Header().Set("WWW-Authenticate", `Basic realm="restricted"`)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid authentication credentials","code":"AUTH_INVALID"}`))
		})
	}
}
