package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New returns the process logger. Development gets the console writer, everything
// else gets JSON on stderr.
func New(env string) zerolog.Logger {
	return NewWithWriter(env, os.Stderr)
}

func NewWithWriter(env string, w io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	if env == "" || env == "development" || env == "dev" {
		w = zerolog.ConsoleWriter{Out: w}
		level = zerolog.DebugLevel
	}

	return zerolog.New(w).With().Timestamp().Logger().Level(level)
}

// Component tags a logger with the subsystem emitting the lines.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}
