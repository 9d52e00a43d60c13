package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"pkm/internal/auth"
	"pkm/internal/httputil"
)

// Auth resolves the caller's user ID from a Bearer token and stores it on
// the request context. With a nil verifier every request acts as devUserID,
// which only cmd/server allows outside production.
func Auth(verifier auth.JWTVerifier, devUserID string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				if devUserID == "" {
					httputil.RespondError(w, http.StatusUnauthorized, "authentication is not configured")
					return
				}
				next.ServeHTTP(w, httputil.WithUserID(r, devUserID))
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				httputil.RespondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				logger.Debug("rejected token", "path", r.URL.Path, "error", err)
				httputil.RespondError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, httputil.WithUserID(r, claims.GetUserID()))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
