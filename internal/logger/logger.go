// Package logger provides the configured zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	zpkgerrors "github.com/rs/zerolog/pkgerrors"
)

// New returns a logger for serviceName writing to stderr. format "text"
// selects the console writer; anything else emits JSON. Unknown levels fall
// back to info.
func New(serviceName, level, format string) zerolog.Logger {
	return NewWithWriter(os.Stderr, serviceName, level, format)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, serviceName, level, format string) zerolog.Logger {
	zerolog.ErrorStackMarshaler = func(err error) interface{} {
		type stackTracer interface{ StackTrace() pkgerrors.StackTrace }
		if _, ok := err.(stackTracer); !ok {
			err = pkgerrors.WithStack(err)
		}
		return zpkgerrors.MarshalStack(err)
	}

	if strings.EqualFold(format, "text") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	return zerolog.New(w).
		Level(ParseLevel(level)).
		With().
		Str("service", serviceName).
		Timestamp().
		Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
