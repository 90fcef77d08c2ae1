// Package obslog centralizes the zerolog setup shared by every component,
// mirroring the teacher's "configure once in main, attach a child logger to
// every request context" idiom.
package obslog

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger. Call once from main.
func Init(service, env string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.With().Str("service", service).Logger()

	if env == "dev" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
}

// WithCorrelation returns a context carrying a logger annotated with the
// request's correlation id, plus the annotated context itself.
func WithCorrelation(ctx context.Context, correlationID string) context.Context {
	logger := log.Ctx(ctx).With().Str("correlation_id", correlationID).Logger()
	return logger.WithContext(ctx)
}

// From returns the context-scoped logger, falling back to the global logger.
func From(ctx context.Context) *zerolog.Logger {
	return log.Ctx(ctx)
}
