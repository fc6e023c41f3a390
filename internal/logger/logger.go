// Package logger configures the process-wide zerolog logger.
package logger

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup initializes the global logger with the given level.
// Unknown levels fall back to info.
func Setup(level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	// Contexts that never pass through the logging middleware still get the
	// global logger from FromContext instead of zerolog's disabled logger.
	zerolog.DefaultContextLogger = &log.Logger
}

// FromContext returns the logger attached to ctx by the logging middleware,
// or the global logger when none is attached.
func FromContext(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}
