package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/MediSynth-io/contentplanner/internal/auth"
	"github.com/go-chi/chi/v5"
)

func (api *Api) CurrentUser(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, auth.UserFromContext(r.Context()))
}

type createTokenRequest struct {
	Name      string `json:"name"`
	ExpiresIn string `json:"expiresIn"`
}

// CreateToken issues an API token. The plaintext is only returned here.
func (api *Api) CreateToken(w http.ResponseWriter, r *http.Request) {
	var req createTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		api.respond(w, r, err, "Failed to create token")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, badRequest("Token name is required"))
		return
	}

	var ttl time.Duration
	if req.ExpiresIn != "" {
		d, err := time.ParseDuration(req.ExpiresIn)
		if err != nil || d <= 0 {
			writeError(w, badRequest("Invalid expiresIn"))
			return
		}
		ttl = d
	}

	user := auth.UserFromContext(r.Context())
	plaintext, token, err := api.Auth.CreateToken(r.Context(), user.ID, req.Name, ttl)
	if err != nil {
		api.respond(w, r, err, "Failed to create token")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"token":     plaintext,
		"id":        token.ID,
		"name":      token.Name,
		"prefix":    token.Prefix,
		"expiresAt": token.ExpiresAt,
	})
}

func (api *Api) ListTokens(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	tokens, err := api.Auth.ListTokens(r.Context(), user.ID)
	if err != nil {
		api.respond(w, r, err, "Failed to list tokens")
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

func (api *Api) DeleteToken(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	deleted, err := api.Auth.DeleteToken(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		api.respond(w, r, err, "Failed to delete token")
		return
	}
	if !deleted {
		writeError(w, notFound("Token not found"))
		return
	}
	writeMessage(w, "Token deleted successfully")
}
