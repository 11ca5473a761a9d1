package middleware

import (
	"net/http"
	"strings"

	logpkg "github.com/benvon/expense-console/internal/logger"
	"github.com/benvon/expense-console/internal/models"
	"github.com/benvon/expense-console/internal/request"
	"go.uber.org/zap"
)

// TokenVerifier checks a bearer token and returns its user
type TokenVerifier interface {
	Verify(token string) (*models.User, error)
}

// Auth creates authentication middleware that validates bearer tokens and
// puts the user in the request context
func Auth(verifier TokenVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				RespondError(w, r, http.StatusUnauthorized, "Missing Authorization header", logger)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
				RespondError(w, r, http.StatusUnauthorized, "Invalid Authorization header format", logger)
				return
			}

			user, err := verifier.Verify(parts[1])
			if err != nil {
				logger.Info("token_verification_failed",
					zap.String("token", logpkg.MaskToken(parts[1])),
					zap.String("error", logpkg.SanitizeError(err)),
				)
				RespondError(w, r, http.StatusUnauthorized, "Invalid or expired token", logger)
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithUser(r.Context(), user)))
		})
	}
}
