package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/termscope/internal/api/response"
	"golang.org/x/crypto/bcrypt"
)

const keyPrefixLen = 8

// Auth checks the console bearer token against a single bcrypt hash.
type Auth struct {
	keyHash []byte
}

// NewAuth creates a new Auth middleware. An empty hash disables authentication.
func NewAuth(keyHash string) *Auth {
	return &Auth{keyHash: []byte(keyHash)}
}

// Enabled reports whether requests must carry a token.
func (a *Auth) Enabled() bool {
	return len(a.keyHash) > 0
}

// Authenticate validates the Bearer token and sets the client identity used
// for rate limiting in the request context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			r = r.WithContext(setClient(r.Context(), "ip:"+remoteHost(r)))
			next.ServeHTTP(w, r)
			return
		}

		rawKey := extractBearerToken(r)
		if rawKey == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing or invalid Authorization header", nil)
			return
		}

		if len(rawKey) < keyPrefixLen {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid API key format", nil)
			return
		}

		if bcrypt.CompareHashAndPassword(a.keyHash, []byte(rawKey)) != nil {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid API key", nil)
			return
		}

		r = r.WithContext(setClient(r.Context(), "key:"+rawKey[:keyPrefixLen]))
		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
