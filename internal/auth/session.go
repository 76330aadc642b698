package auth

import (
	"context"
	"net/http"

	"github.com/MediSynth-io/contentplanner/internal/models"
	"github.com/gorilla/sessions"
)

const (
	sessionCookieName = "cp_session"
	stateCookieName   = "cp_oauth_state"

	sidKey   = "sid"
	nonceKey = "state"
)

func newCookieStore(secret string, secure bool, maxAge int) *sessions.CookieStore {
	cs := sessions.NewCookieStore([]byte(secret))
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return cs
}

// StartSession creates a server-side session and binds it to the response cookie.
func (s *Service) StartSession(w http.ResponseWriter, r *http.Request, userID string) (*models.Session, error) {
	sess, err := s.store.CreateSession(r.Context(), userID, s.cfg.SessionTTL)
	if err != nil {
		return nil, err
	}

	cookie, _ := s.cookies.Get(r, sessionCookieName)
	cookie.Values[sidKey] = sess.ID
	if err := cookie.Save(r, w); err != nil {
		return nil, err
	}
	return sess, nil
}

// SessionUser resolves the session cookie on r to a user. A missing, tampered
// or expired session yields nil without error.
func (s *Service) SessionUser(r *http.Request) (*models.User, error) {
	sid := s.sessionID(r)
	if sid == "" {
		return nil, nil
	}

	ctx := r.Context()
	sess, err := s.store.GetSession(ctx, sid)
	if err != nil || sess == nil {
		return nil, err
	}
	return s.store.GetUser(ctx, sess.UserID)
}

// EndSession deletes the server-side session and expires the cookie.
func (s *Service) EndSession(w http.ResponseWriter, r *http.Request) error {
	if sid := s.sessionID(r); sid != "" {
		if _, err := s.store.DeleteSession(r.Context(), sid); err != nil {
			return err
		}
	}

	cookie, _ := s.cookies.Get(r, sessionCookieName)
	cookie.Values = map[interface{}]interface{}{}
	cookie.Options.MaxAge = -1
	return cookie.Save(r, w)
}

func (s *Service) sessionID(r *http.Request) string {
	cookie, err := s.cookies.Get(r, sessionCookieName)
	if err != nil {
		return ""
	}
	sid, _ := cookie.Values[sidKey].(string)
	return sid
}

// CleanupSessions drops expired sessions from the store.
func (s *Service) CleanupSessions(ctx context.Context) (int64, error) {
	return s.store.CleanupExpiredSessions(ctx)
}
