// Package logging builds the zerolog loggers used across tether.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Options struct {
	// App is attached to every entry.
	App string
	// Debug lowers the level to debug; otherwise info.
	Debug bool
	// JSON writes raw JSON lines instead of the console format.
	JSON bool
	// NoColor disables ANSI colors in the console format.
	NoColor bool
	Writer  io.Writer
}

// New builds a logger from opts.
func New(opts Options) zerolog.Logger {
	out := opts.Writer
	if out == nil {
		out = os.Stdout
	}
	if !opts.JSON {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    opts.NoColor,
		}
	}

	ctx := zerolog.New(out).Level(level(opts.Debug)).With().Timestamp()
	if opts.App != "" {
		ctx = ctx.Str("app", opts.App)
	}
	return ctx.Logger()
}

// Init builds a logger and installs it as the global log.Logger.
func Init(opts Options) zerolog.Logger {
	logger := New(opts)
	log.Logger = logger
	return logger
}

// SetDebug toggles the debug level on logger, for config reloads.
func SetDebug(logger zerolog.Logger, debug bool) zerolog.Logger {
	return logger.Level(level(debug))
}

func level(debug bool) zerolog.Level {
	if debug {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}
