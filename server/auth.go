package server

import (
	"crypto/subtle"
	"net/http"
)

const (
	adminTokenHeader = "X-Admin-Token"
	adminTokenQuery  = "admin_token"
)

// adminAuth guards the admin routes with the shared secret, taken from
// either a header or a query parameter and compared in constant time.
func adminAuth(token string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get(adminTokenHeader)
			if presented == "" {
				presented = r.URL.Query().Get(adminTokenQuery)
			}
			if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid admin token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
