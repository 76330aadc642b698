package mailer

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSender writes messages to the log instead of delivering them. Used in development.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log.With().Str("component", "mailer").Logger()}
}

func (l *LogSender) Send(_ context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	l.log.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Msg("Email not delivered, log sender in use")
	l.log.Debug().Msg(msg.Text)
	return nil
}
