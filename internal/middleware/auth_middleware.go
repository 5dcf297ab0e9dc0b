package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/qcom/intake/internal/service"
	"github.com/sirupsen/logrus"
)

type contextKey string

const claimsKey contextKey = "admin_claims"

// Authorizer validates an admin session token.
type Authorizer interface {
	Authorize(ctx context.Context, token string) (*service.Claims, error)
}

type AuthMiddleware struct {
	authorizer Authorizer
	cookieName string
	logger     *logrus.Logger
}

func NewAuthMiddleware(authorizer Authorizer, cookieName string, logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		authorizer: authorizer,
		cookieName: cookieName,
		logger:     logger,
	}
}

// RequireAdmin accepts the session cookie or an "Authorization: Bearer"
// header and rejects the request with 401 otherwise.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := TokenFromRequest(r, m.cookieName)
		if !ok {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}

		claims, err := m.authorizer.Authorize(r.Context(), token)
		if err != nil {
			if !errors.Is(err, service.ErrInvalidToken) && !errors.Is(err, service.ErrTokenRevoked) {
				m.logger.WithError(err).Error("Failed to authorize admin token")
			} else {
				m.logger.WithError(err).Debug("Token verification failed")
			}
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TokenFromRequest returns the session token carried by r, if any.
func TokenFromRequest(r *http.Request, cookieName string) (string, bool) {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value, true
	}

	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && strings.TrimSpace(parts[1]) != "" {
		return strings.TrimSpace(parts[1]), true
	}
	return "", false
}

// ClaimsFromContext returns the admin claims stored by RequireAdmin.
func ClaimsFromContext(ctx context.Context) (*service.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*service.Claims)
	return claims, ok
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *service.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}
