package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/surajM3157/myAPI/internal/domain"
	"github.com/surajM3157/myAPI/internal/repository"
)

type authContextKey string

const contextKeyUser authContextKey = "myapi-auth-user"

type contextSetter interface {
	SetContext(context.Context)
}

// requireAuth ensures the request has a valid bearer token before invoking
// the handler. On success the resolved account travels on the context.
func (r *Router) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		token, err := bearerToken(req.Header.Get("Authorization"))
		if err != nil {
			r.logger.Warn("authorization header invalid", "error", err, "path", req.URL.Path)
			writeError(w, http.StatusUnauthorized, "No token, authorization denied")
			return
		}
		user, err := r.auth.Authorize(req.Context(), token)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				r.logger.Warn("token subject missing", "path", req.URL.Path)
				writeError(w, http.StatusUnauthorized, "User not found")
				return
			}
			r.logger.Warn("token validation failed", "error", err, "path", req.URL.Path)
			writeError(w, http.StatusUnauthorized, "Token is not valid")
			return
		}
		ctx := context.WithValue(req.Context(), contextKeyUser, user)
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		next(w, req.WithContext(ctx))
	}
}

// userFromContext extracts the authenticated account from context.
func userFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(contextKeyUser).(*domain.User)
	return user, ok
}

func bearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("empty bearer token")
	}
	return token, nil
}
