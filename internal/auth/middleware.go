package auth

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Authenticate resolves the caller from a bearer token or the session cookie.
// Anonymous requests pass through with no user in the context.
func (s *Service) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if header := r.Header.Get("Authorization"); header != "" {
			bearer, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				unauthorized(w)
				return
			}
			t, err := s.ValidateToken(ctx, bearer)
			if err != nil {
				s.log.Debug().Err(err).Msg("Rejected API token")
				unauthorized(w)
				return
			}
			user, err := s.store.GetUser(ctx, t.UserID)
			if err != nil || user == nil {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(ctx, user)))
			return
		}

		user, err := s.SessionUser(r)
		if err != nil {
			s.log.Error().Err(err).Msg("Failed to load session")
		}
		if user != nil {
			ctx = WithUser(ctx, user)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects requests that Authenticate did not resolve to a user.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == nil {
			unauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"message": "Unauthorized", "code": "unauthorized"})
}
