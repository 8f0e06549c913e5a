package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
)

// ServiceKeyMiddleware guards the internal endpoints that the identity flow
// calls back into. Callers present a shared key in a header.
type ServiceKeyMiddleware struct {
	headerName string
	keyHash    string
}

func NewServiceKeyMiddleware(headerName, key string) *ServiceKeyMiddleware {
	return &ServiceKeyMiddleware{
		headerName: headerName,
		keyHash:    HashAPIKey(key),
	}
}

func (m *ServiceKeyMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(m.headerName)
		if key == "" {
			writeError(w, http.StatusUnauthorized, "missing service key")
			return
		}
		if subtle.ConstantTimeCompare([]byte(HashAPIKey(key)), []byte(m.keyHash)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid service key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func HashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}
