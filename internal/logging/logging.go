// Package logging builds the zerolog loggers shared by every binary.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a JSON logger on stdout, or a human-readable console logger in dev.
func New(service, env string) zerolog.Logger {
	return NewTo(os.Stdout, service, env)
}

// NewTo is New with an explicit destination, e.g. stderr for CLIs that print
// results on stdout.
func NewTo(w io.Writer, service, env string) zerolog.Logger {
	out := w
	if isDev(env) {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	level := zerolog.InfoLevel
	if lv, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && lv != zerolog.NoLevel {
		level = lv
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Str("env", env).
		Logger()
}

func isDev(env string) bool {
	return env == "dev" || env == "development"
}
