package api

import (
	"bytes"
	"net/http"

	"github.com/MediSynth-io/contentplanner/internal/auth"
	"github.com/MediSynth-io/contentplanner/internal/entitlement"
	"github.com/MediSynth-io/contentplanner/internal/export"
)

// ExportCSV streams the caller's items as a CSV attachment.
func (api *Api) ExportCSV(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	items, err := api.Content.List(r.Context(), &user.ID)
	if err != nil {
		api.respond(w, r, err, "Failed to export CSV")
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, items); err != nil {
		api.respond(w, r, err, "Failed to export CSV")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="content-calendar.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// ExportPDF renders the caller's items as a PDF. With ?upload=true the file is
// stored and a presigned link returned instead.
func (api *Api) ExportPDF(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := auth.UserFromContext(ctx)
	if err := entitlement.Allow(user, entitlement.FeaturePDFExport); err != nil {
		api.respond(w, r, err, "Failed to export PDF")
		return
	}

	items, err := api.Content.List(ctx, &user.ID)
	if err != nil {
		api.respond(w, r, err, "Failed to export PDF")
		return
	}

	if r.URL.Query().Get("upload") == "true" {
		if api.Publisher == nil {
			writeError(w, &APIError{Status: http.StatusServiceUnavailable, Code: "unavailable", Message: "Export uploads are not configured"})
			return
		}
		link, err := api.Publisher.PublishPDF(ctx, user, items)
		if err != nil {
			api.respond(w, r, err, "Failed to export PDF")
			return
		}
		writeJSON(w, http.StatusOK, link)
		return
	}

	var buf bytes.Buffer
	if err := export.WritePDF(&buf, user.EmailAddress(), items); err != nil {
		api.respond(w, r, err, "Failed to export PDF")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="content-calendar.pdf"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (api *Api) TestReminder(w http.ResponseWriter, r *http.Request) {
	if err := api.Reminders.SendNow(r.Context(), auth.UserFromContext(r.Context())); err != nil {
		api.respond(w, r, err, "Failed to send test reminder")
		return
	}
	writeMessage(w, "Test reminder sent successfully")
}
