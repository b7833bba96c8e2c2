// Package auth guards the workspace API with an optional shared access key.
package auth

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = bcrypt.DefaultCost

// HashKey hashes a plain-text access key with bcrypt.
func HashKey(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("auth.HashKey: %w", err)
	}
	return string(b), nil
}

// CheckKey compares plain text against a bcrypt hash.
func CheckKey(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// Guard checks Bearer tokens against the access key hash.
// A Guard without a key lets every request through.
type Guard struct {
	hash    string
	lockout *Lockout
}

// NewGuard creates a Guard for key. An empty key disables checking.
func NewGuard(key string, lockout *Lockout) (*Guard, error) {
	g := &Guard{lockout: lockout}
	if key == "" {
		return g, nil
	}
	hash, err := HashKey(key)
	if err != nil {
		return nil, fmt.Errorf("auth.NewGuard: %w", err)
	}
	g.hash = hash
	return g, nil
}

// Enabled reports whether a key is required.
func (g *Guard) Enabled() bool { return g != nil && g.hash != "" }

// Allow reports whether r carries the access key.
func (g *Guard) Allow(r *http.Request) bool {
	if !g.Enabled() {
		return true
	}
	token := BearerToken(r)
	return token != "" && CheckKey(token, g.hash)
}

// RequireKey is middleware that validates the Bearer token on mutating requests.
// GET, HEAD and OPTIONS pass through.
func (g *Guard) RequireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Enabled() || readOnly(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		ip := ClientIP(r)
		if g.lockout.Blocked(ip) {
			writeError(w, http.StatusTooManyRequests, "too many failed attempts")
			return
		}
		if !g.Allow(r) {
			g.lockout.Fail(ip)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		g.lockout.Reset(ip)
		next.ServeHTTP(w, r)
	})
}

func readOnly(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// ClientIP returns the request's remote host without the port.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `{"success":false,"error":%q}`, msg)
}
