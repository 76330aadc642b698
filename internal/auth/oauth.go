package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MediSynth-io/contentplanner/internal/config"
	"github.com/MediSynth-io/contentplanner/internal/models"
	"github.com/MediSynth-io/contentplanner/internal/store"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const stateTTL = 5 * time.Minute

// ErrMissingSubject is returned when the identity provider's profile carries no subject.
var ErrMissingSubject = errors.New("userinfo response has no subject")

// Profile is the subset of the OpenID Connect userinfo document we keep.
type Profile struct {
	Subject    string `json:"sub"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

func (p Profile) upsert() models.UpsertUser {
	return models.UpsertUser{
		ID:              p.Subject,
		Email:           optional(p.Email),
		FirstName:       optional(p.GivenName),
		LastName:        optional(p.FamilyName),
		ProfileImageURL: optional(p.Picture),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Service runs the OAuth login flow and resolves sessions and API tokens to users.
type Service struct {
	cfg     config.AuthConfig
	store   *store.Store
	oauth   *oauth2.Config
	cookies *sessions.CookieStore
	states  *sessions.CookieStore
	signer  *StateSigner
	client  *http.Client
	log     zerolog.Logger
}

func NewService(cfg config.AuthConfig, s *store.Store, secure bool, log zerolog.Logger) *Service {
	stateSecret := cfg.StateSecret
	if stateSecret == "" {
		stateSecret = cfg.SessionSecret
	}
	return &Service{
		cfg:   cfg,
		store: s,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		cookies: newCookieStore(cfg.SessionSecret, secure, int(cfg.SessionTTL.Seconds())),
		states:  newCookieStore(stateSecret, secure, int(stateTTL.Seconds())),
		signer:  NewStateSigner(stateSecret, stateTTL),
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("component", "auth").Logger(),
	}
}

// Login starts the authorization code flow.
func (s *Service) Login(w http.ResponseWriter, r *http.Request) {
	nonce, err := randomHex(16)
	if err != nil {
		s.fail(w, err, "Failed to generate state")
		return
	}
	state, err := s.signer.Sign(nonce)
	if err != nil {
		s.fail(w, err, "Failed to sign state")
		return
	}

	session, _ := s.states.Get(r, stateCookieName)
	session.Values[nonceKey] = nonce
	if err := session.Save(r, w); err != nil {
		s.fail(w, err, "Failed to save state")
		return
	}

	http.Redirect(w, r, s.oauth.AuthCodeURL(state), http.StatusFound)
}

// Callback completes the flow, upserts the user and starts a session.
func (s *Service) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		s.log.Warn().Str("error", errParam).Msg("Identity provider returned an error")
		http.Redirect(w, r, "/api/login", http.StatusFound)
		return
	}

	session, _ := s.states.Get(r, stateCookieName)
	expected, _ := session.Values[nonceKey].(string)
	delete(session.Values, nonceKey)
	session.Options.MaxAge = -1
	_ = session.Save(r, w)

	nonce, err := s.signer.Verify(r.URL.Query().Get("state"))
	if err != nil || expected == "" || nonce != expected {
		s.log.Warn().Err(err).Msg("OAuth state mismatch")
		http.Error(w, "Invalid state", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Missing code", http.StatusBadRequest)
		return
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		s.fail(w, err, "Failed to exchange code")
		return
	}

	profile, err := s.fetchProfile(ctx, token)
	if err != nil {
		s.fail(w, err, "Failed to fetch user info")
		return
	}

	user, err := s.store.UpsertUser(ctx, profile.upsert())
	if err != nil {
		s.fail(w, err, "Failed to save user")
		return
	}

	if _, err := s.StartSession(w, r, user.ID); err != nil {
		s.fail(w, err, "Failed to start session")
		return
	}

	s.log.Info().Str("user_id", user.ID).Msg("User logged in")
	http.Redirect(w, r, "/", http.StatusFound)
}

// Logout ends the session and returns to the landing page.
func (s *Service) Logout(w http.ResponseWriter, r *http.Request) {
	if err := s.EndSession(w, r); err != nil {
		s.log.Error().Err(err).Msg("Failed to end session")
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Service) fetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}

	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	if p.Subject == "" {
		return nil, ErrMissingSubject
	}
	return &p, nil
}

func (s *Service) fail(w http.ResponseWriter, err error, msg string) {
	s.log.Error().Err(err).Msg(msg)
	http.Error(w, msg, http.StatusInternalServerError)
}
