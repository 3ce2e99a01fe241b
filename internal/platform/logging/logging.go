package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the service logger. dev mode writes human readable console
// output, release writes JSON lines.
func New(mode, level string) zerolog.Logger {
	return NewWithWriter(os.Stdout, mode, level)
}

func NewWithWriter(w io.Writer, mode, level string) zerolog.Logger {
	lvl := ParseLevel(level)
	if mode == "dev" && level == "" {
		lvl = zerolog.DebugLevel
	}

	out := w
	if mode == "dev" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Str("service", "verein-backend").
		Logger()
}

// ParseLevel falls back to info for unknown values.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "trace":
		return zerolog.TraceLevel
	default:
		return zerolog.InfoLevel
	}
}
