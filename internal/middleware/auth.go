// Package middleware provides HTTP middleware for the admin API.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/tourlink/marketplace/internal/httputil"
	"github.com/tourlink/marketplace/internal/logging"
	"github.com/tourlink/marketplace/pkg/logger"
)

// AdminAuth guards the admin API with a shared bearer token. The acting user
// and role come from headers the admin frontend sets after its own login;
// they feed the audit trail, not authorization (the token does that).
type AdminAuth struct {
	token     string
	log       *logger.Logger
	skipPaths map[string]bool
}

// NewAdminAuth builds the middleware. Requests to skipPaths pass through
// unauthenticated.
func NewAdminAuth(token string, log *logger.Logger, skipPaths []string) *AdminAuth {
	if log == nil {
		log = logger.NewDefault("admin-auth")
	}
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}
	return &AdminAuth{token: token, log: log, skipPaths: skip}
}

// Handler returns the middleware handler.
func (m *AdminAuth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		if m.token == "" {
			m.log.Warn("admin token not configured; rejecting request")
			httputil.Unauthorized(w, "admin API is not configured")
			return
		}

		header := r.Header.Get("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.Unauthorized(w, "missing or malformed Authorization header")
			return
		}
		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(m.token)) != 1 {
			m.log.WithField("path", r.URL.Path).Warn("admin token rejected")
			httputil.Unauthorized(w, "invalid admin token")
			return
		}

		user := strings.TrimSpace(r.Header.Get("X-Admin-User"))
		role := strings.TrimSpace(r.Header.Get("X-Admin-Role"))
		ctx := logging.WithUser(r.Context(), user, role)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
