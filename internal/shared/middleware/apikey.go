package middleware

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"pushrelay/internal/shared/auth"
)

// APIKeyHeader carries the caller's plain text API key.
const APIKeyHeader = "X-API-Key"

// APIKey rejects requests whose X-API-Key does not match the bcrypt hash.
// An empty hash disables the check.
func APIKey(hash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if hash == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := auth.VerifyAPIKey(hash, r.Header.Get(APIKeyHeader)); err != nil {
				log.WithFields(log.Fields{
					"path":        r.URL.Path,
					"remote_addr": r.RemoteAddr,
				}).Warn("Rejected request with invalid API key")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
