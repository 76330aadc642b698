// Package mailer delivers outbound email.
package mailer

import (
	"context"
	"errors"

	"github.com/MediSynth-io/contentplanner/internal/config"
	"github.com/rs/zerolog"
)

// Message is a single outbound email with text and HTML bodies.
type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a message. Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var ErrNoRecipient = errors.New("message has no recipient")

// New picks SendGrid when an API key is configured and falls back to logging otherwise.
func New(cfg config.EmailConfig, log zerolog.Logger) Sender {
	if cfg.SendGridAPIKey == "" {
		log.Warn().Msg("No SendGrid API key configured, emails will only be logged")
		return NewLogSender(log)
	}
	return NewSendGrid(cfg.SendGridAPIKey, cfg.From, cfg.FromName, "")
}
