package chi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/obstore/internal/domain/access"
	"github.com/kailas-cloud/obstore/internal/logger"
)

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// BearerAuthMiddleware returns a middleware that validates Bearer tokens and
// runs the request as the user the token belongs to.
// If users is empty, authentication is disabled and requests run as the
// system caller.
func BearerAuthMiddleware(users map[string]access.User) func(http.Handler) http.Handler {
	byKey := make(map[string]access.User, len(users))
	for k, u := range users {
		if k != "" {
			byKey[k] = u
		}
	}

	return func(next http.Handler) http.Handler {
		// Auth disabled: pass everything through
		if len(byKey) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Exempt paths
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized,
					CodeUnauthorized, "authorization header must use Bearer scheme")
				return
			}

			u, ok := byKey[auth[len(bearerPrefix):]]
			if !ok {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid api key")
				return
			}

			ctx := access.ContextWithUser(r.Context(), &u)
			ctx = logger.With(ctx, zap.String("user", u.Name), zap.String("tenant", u.Tenant))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
