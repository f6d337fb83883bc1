package utils

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns the process logger writing JSON to out, or a console writer when pretty is set.
// An unknown level falls back to info.
func NewLogger(out io.Writer, level string, pretty bool) zerolog.Logger {
	if pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}
