// Package logging configures the process-wide zerolog logger from the
// skilltrace logging configuration.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/normanking/skilltrace/internal/config"
)

// Setup applies the logging configuration to the global logger. Verbose
// forces debug level regardless of the configured level. An unreadable
// log file degrades to stderr rather than failing the command; the CLI
// is used interactively and a lost log file should not block tracking.
func Setup(cfg config.LoggingConfig, verbose bool) {
	zerolog.SetGlobalLevel(resolveLevel(cfg.Level, verbose))
	log.Logger = zerolog.New(buildWriter(cfg.File)).With().Timestamp().Logger()
}

// resolveLevel parses the configured level, falling back to info on
// anything unrecognized.
func resolveLevel(level string, verbose bool) zerolog.Level {
	if verbose {
		return zerolog.DebugLevel
	}

	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}

// buildWriter opens the configured log file, or returns a stderr
// console writer when no file is set or the file cannot be opened.
func buildWriter(path string) io.Writer {
	if path == "" {
		return zerolog.ConsoleWriter{Out: os.Stderr}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to open log file: %v\n", err)
		return zerolog.ConsoleWriter{Out: os.Stderr}
	}

	return zerolog.ConsoleWriter{Out: file, NoColor: true}
}
