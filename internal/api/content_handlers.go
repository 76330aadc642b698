package api

import (
	"net/http"

	"github.com/MediSynth-io/contentplanner/internal/auth"
	"github.com/MediSynth-io/contentplanner/internal/content"
	"github.com/go-chi/chi/v5"
)

func (api *Api) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := api.Store.ListTemplates(r.Context())
	if err != nil {
		api.respond(w, r, err, "Failed to fetch templates")
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

func (api *Api) GetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := api.Store.GetTemplate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.respond(w, r, err, "Failed to fetch template")
		return
	}
	if t == nil {
		writeError(w, notFound("Template not found"))
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// ApplyTemplate returns the editor prefill for a template, or 403 when the
// template is premium and the caller is not subscribed.
func (api *Api) ApplyTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	t, err := api.Store.GetTemplate(ctx, chi.URLParam(r, "id"))
	if err != nil {
		api.respond(w, r, err, "Failed to fetch template")
		return
	}
	if t == nil {
		writeError(w, notFound("Template not found"))
		return
	}

	prefill, err := api.Content.ApplyTemplate(auth.UserFromContext(ctx), t)
	if err != nil {
		api.respond(w, r, err, "Failed to apply template")
		return
	}
	writeJSON(w, http.StatusOK, prefill)
}

// ListContent returns the caller's items, or every item for anonymous callers.
func (api *Api) ListContent(w http.ResponseWriter, r *http.Request) {
	var owner *string
	if user := auth.UserFromContext(r.Context()); user != nil {
		owner = &user.ID
	}
	items, err := api.Content.List(r.Context(), owner)
	if err != nil {
		api.respond(w, r, err, "Failed to fetch content items")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (api *Api) GetContent(w http.ResponseWriter, r *http.Request) {
	item, err := api.Content.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.respond(w, r, err, "Failed to fetch content item")
		return
	}
	if item == nil {
		writeError(w, notFound("Content item not found"))
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (api *Api) CreateContent(w http.ResponseWriter, r *http.Request) {
	var in content.CreateInput
	if err := decodeJSON(w, r, &in); err != nil {
		api.respond(w, r, err, "Failed to create content item")
		return
	}

	user := auth.UserFromContext(r.Context())
	item, err := api.Content.Create(r.Context(), user.ID, in)
	if err != nil {
		api.respond(w, r, err, "Failed to create content item")
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (api *Api) UpdateContent(w http.ResponseWriter, r *http.Request) {
	var in content.UpdateInput
	if err := decodeJSON(w, r, &in); err != nil {
		api.respond(w, r, err, "Failed to update content item")
		return
	}

	user := auth.UserFromContext(r.Context())
	item, err := api.Content.Update(r.Context(), user.ID, chi.URLParam(r, "id"), in)
	if err != nil {
		api.respond(w, r, err, "Failed to update content item")
		return
	}
	if item == nil {
		writeError(w, notFound("Content item not found"))
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (api *Api) DeleteContent(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	deleted, err := api.Content.Delete(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		api.respond(w, r, err, "Failed to delete content item")
		return
	}
	if !deleted {
		writeError(w, notFound("Content item not found"))
		return
	}
	writeMessage(w, "Content item deleted successfully")
}

func (api *Api) CreateReminder(w http.ResponseWriter, r *http.Request) {
	var in content.ReminderInput
	if err := decodeJSON(w, r, &in); err != nil {
		api.respond(w, r, err, "Failed to create reminder")
		return
	}

	user := auth.UserFromContext(r.Context())
	reminder, err := api.Content.ScheduleReminder(r.Context(), user.ID, in)
	if err != nil {
		api.respond(w, r, err, "Failed to create reminder")
		return
	}
	if reminder == nil {
		writeError(w, notFound("Content item not found"))
		return
	}
	writeJSON(w, http.StatusCreated, reminder)
}
