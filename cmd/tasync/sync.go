package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Belphemur/ArchiveSync/internal/config"
	"github.com/Belphemur/ArchiveSync/internal/episode"
	"github.com/Belphemur/ArchiveSync/internal/metrics"
)

type syncOptions struct {
	videoID string
	itemID  string
	dryRun  bool
}

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var opts syncOptions

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Copy one archive video's metadata and thumbnail to a media server item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runSync(cmd.Context(), cfg, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.videoID, "video", "", "Archive video ID")
	cmd.Flags().StringVar(&opts.itemID, "item", "", "Media server item ID")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print the derived item payload instead of writing it")
	_ = cmd.MarkFlagRequired("video")
	_ = cmd.MarkFlagRequired("item")

	return cmd
}

// runSync performs a single episode synchronization. Logs go to stderr;
// stdout only carries the payload of a dry run.
func runSync(ctx context.Context, cfg *config.Config, opts syncOptions, stdout, stderr io.Writer) error {
	logger, closer := config.NewLogger(cfg, stderr)
	defer closer.Close()

	logger.Info().
		Str("archive_url", cfg.Archive.URL).
		Str("media_server_url", cfg.MediaServer.URL).
		Str("cache_type", cfg.Cache.Type).
		Bool("dry_run", opts.dryRun).
		Msg("Starting episode sync")

	reporter := newErrorReporter(cfg, logger)
	defer reporter.Flush()

	err := syncEpisode(ctx, cfg, opts, stdout, logger)
	if err != nil {
		reporter.Capture(err, opts)
	}

	if cfg.Metrics.PushURL != "" {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		grouping := map[string]string{"item": opts.itemID}
		if pushErr := metrics.Push(pushCtx, cfg.Metrics.PushURL, cfg.Metrics.Job, prometheus.DefaultGatherer, grouping); pushErr != nil {
			logger.Warn().Err(pushErr).Str("url", cfg.Metrics.PushURL).Msg("Failed to push metrics")
		}
	}

	return err
}

func syncEpisode(ctx context.Context, cfg *config.Config, opts syncOptions, stdout io.Writer, logger zerolog.Logger) error {
	deps, err := newDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	ep, err := episode.New(opts.videoID, opts.itemID, deps.archive, deps.server,
		episode.WithLogger(logger),
		episode.WithSanitizer(deps.sanitizer),
	)
	if err != nil {
		return err
	}

	video, err := ep.FetchRecord(ctx)
	if err != nil {
		return err
	}
	logger.Info().
		Str("archiveID", video.ID).
		Str("title", video.Title).
		Str("published", video.Published).
		Msg("Fetched archive video")

	if opts.dryRun {
		payload, err := ep.Preview(video)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(payload); err != nil {
			return fmt.Errorf("write payload: %w", err)
		}
		return nil
	}

	if err := ep.Sync(ctx, video); err != nil {
		return err
	}
	logger.Info().Str("archiveID", opts.videoID).Str("itemID", opts.itemID).Msg("Episode synchronized")
	return nil
}
