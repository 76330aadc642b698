package reminder

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"text/template"

	"github.com/MediSynth-io/contentplanner/internal/mailer"
	"github.com/MediSynth-io/contentplanner/internal/models"
)

//go:embed templates
var templateFS embed.FS

var (
	textTmpl = template.Must(template.ParseFS(templateFS, "templates/reminder.txt.tmpl"))
	htmlTmpl = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/reminder.html.tmpl"))
)

const dateLayout = "1/2/2006"

type view struct {
	Title    string
	Platform models.Platform
	Date     string
}

// Subject is the reminder subject line for an item.
func Subject(title string, platform models.Platform) string {
	return fmt.Sprintf(`Reminder: Content "%s" scheduled for %s`, title, platform)
}

// Render builds the email for a due reminder.
func Render(d models.DueReminder) (mailer.Message, error) {
	v := view{Title: d.Title, Platform: d.Platform, Date: d.ScheduledDate.UTC().Format(dateLayout)}

	var text, html bytes.Buffer
	if err := textTmpl.Execute(&text, v); err != nil {
		return mailer.Message{}, fmt.Errorf("render text body: %w", err)
	}
	if err := htmlTmpl.Execute(&html, v); err != nil {
		return mailer.Message{}, fmt.Errorf("render html body: %w", err)
	}

	return mailer.Message{
		To:      d.Email,
		Subject: Subject(d.Title, d.Platform),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
