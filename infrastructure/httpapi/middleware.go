package httpapi

import (
	"context"
	"net/http"
	"strings"

	"chat-relay/domain"
	"chat-relay/errors"
)

type contextKey string

const identityKey contextKey = "identity"

// IdentityFrom returns the authenticated identity attached by the auth
// middleware, if any.
func IdentityFrom(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(domain.Identity)
	return identity, ok
}

// requireAuth validates the Authorization bearer token and attaches the
// resulting identity to the request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			writeError(w, errors.ErrNotAuthenticated)
			return
		}

		claims, err := s.tokens.Validate(token)
		if err != nil {
			writeError(w, err)
			return
		}

		identity := domain.Identity{
			UserID:      domain.UserID(claims.Subject),
			DisplayName: claims.DisplayName,
		}
		ctx := context.WithValue(r.Context(), identityKey, identity)
		next(w, r.WithContext(ctx))
	}
}

// logRequests is the outermost middleware: one line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		s.log.Debug("http request", "method", r.Method, "path", r.URL.Path)
	})
}
