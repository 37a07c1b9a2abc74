package handlers

import (
	"net/http"
	"strings"

	"github.com/recipe-app/apiserver/internal/logging"
	"github.com/recipe-app/apiserver/internal/services"
	"go.uber.org/zap"
)

// Accepted Authorization schemes. "Token" is the canonical one.
var authSchemes = []string{"Token", "Bearer"}

// RequireAuth resolves the Authorization token and injects the user into
// the request context.
func RequireAuth(auth *services.AuthService, logger *zap.Logger) func(http.Handler) http.Handler {
	logger = logging.OrNop(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := tokenFromHeader(r.Header.Get("Authorization"))
			if !ok {
				writeUnauthorized(w)
				return
			}

			user, err := auth.ResolveToken(r.Context(), key)
			if err != nil {
				writeServiceError(w, r, logger, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

func tokenFromHeader(header string) (string, bool) {
	scheme, key, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found {
		return "", false
	}

	for _, accepted := range authSchemes {
		if strings.EqualFold(scheme, accepted) {
			key = strings.TrimSpace(key)
			return key, key != ""
		}
	}
	return "", false
}
