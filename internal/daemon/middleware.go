package daemon

import (
	"context"
	"net/http"

	"github.com/soleren/tempo/internal/storage"
)

type contextKey int

const userContextKey contextKey = iota

// requireAuth verifies the bearer token and stores the authenticated
// user on the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusBadRequest, "Authorization header is required")
			return
		}

		user, err := s.auth.Validate(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userFrom returns the authenticated user placed by requireAuth, or nil.
func userFrom(ctx context.Context) *storage.User {
	user, _ := ctx.Value(userContextKey).(*storage.User)
	return user
}
