// Package logging provides structured logging for the Nova backend.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New creates the root logger. Subsystems derive component loggers from it
// via Component so every line carries a component field.
func New(level string, console bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var out io.Writer = os.Stderr
	if console {
		out = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		}
	}

	return zerolog.New(out).Level(lvl).With().
		Timestamp().
		Str("app", "nova").
		Logger()
}

// Component returns a child logger tagged with the given component name.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
