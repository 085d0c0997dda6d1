package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/crucial707/detector/internal/apperr"
	"github.com/crucial707/detector/internal/models"
)

// AccessTokenCookie carries the base64-encoded access token.
const AccessTokenCookie = "AccessToken"

type ctxKey string

const userKey ctxKey = "user"

// UserResolver maps an access-token cookie value to its user.
type UserResolver interface {
	Resolve(ctx context.Context, cookieValue string) (*models.User, error)
}

// WithUser returns ctx carrying the acting user.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext returns the user set by RequireUser, or nil.
func UserFromContext(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}

// RequireUser rejects requests without a resolvable AccessToken cookie with 401
// before the handler runs, and stores the resolved user in the request context.
func RequireUser(resolver UserResolver, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(AccessTokenCookie)
			if err != nil || cookie.Value == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			user, err := resolver.Resolve(r.Context(), cookie.Value)
			if err != nil {
				if !apperr.Is(err, apperr.KindUnauthorized) {
					logger.Error("resolve access token", zap.Error(err))
					writeError(w, http.StatusInternalServerError, "internal server error")
					return
				}
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}
