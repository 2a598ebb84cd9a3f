package main

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"

	"github.com/Belphemur/ArchiveSync/internal/config"
)

// errorReporter forwards failed runs to Sentry when a DSN is configured.
type errorReporter struct {
	enabled bool
}

func newErrorReporter(cfg *config.Config, logger zerolog.Logger) *errorReporter {
	if cfg.Sentry.DSN == "" {
		return &errorReporter{}
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.Sentry.DSN,
		Environment: cfg.Sentry.Environment,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize Sentry, error reporting disabled")
		return &errorReporter{}
	}
	return &errorReporter{enabled: true}
}

func (r *errorReporter) Capture(err error, opts syncOptions) {
	if !r.enabled || err == nil || errors.Is(err, context.Canceled) {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("archiveID", opts.videoID)
		scope.SetTag("itemID", opts.itemID)
		scope.SetTag("dryRun", strconv.FormatBool(opts.dryRun))
		sentry.CaptureException(err)
	})
}

func (r *errorReporter) Flush() {
	if r.enabled {
		sentry.Flush(2 * time.Second)
	}
}

