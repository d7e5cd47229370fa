// Package logger builds the zerolog loggers used by the guidance CLI.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Options control where and how log lines are written.
type Options struct {
	// File receives JSON log lines when set; it takes precedence over
	// Pretty.
	File string
	// Pretty switches stderr output to the human-readable console
	// format.
	Pretty bool
}

// New builds a logger per the options. Without a file, lines go to
// stderr so they never interleave with model output on stdout. The
// level comes from the LOG_LEVEL environment variable (trace, debug,
// info, warn, error); unset or unknown values mean info.
func New(opts Options) (zerolog.Logger, error) {
	level := parseLogLevel(os.Getenv("LOG_LEVEL"))

	var output io.Writer
	switch {
	case opts.File != "":
		//nolint:gosec // G304: User-specified log file path is intentional
		file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return zerolog.Logger{}, fmt.Errorf("failed to open log file %s: %w", opts.File, err)
		}
		output = file
	case opts.Pretty:
		output = zerolog.ConsoleWriter{Out: os.Stderr}
	default:
		output = os.Stderr
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Logger()
	logger.Debug().Str("level", level.String()).Msg("Logger initialized")
	return logger, nil
}

func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
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
