package main

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Belphemur/ArchiveSync/internal/archive"
	"github.com/Belphemur/ArchiveSync/internal/cache"
	"github.com/Belphemur/ArchiveSync/internal/config"
	"github.com/Belphemur/ArchiveSync/internal/httpx"
	"github.com/Belphemur/ArchiveSync/internal/mediaserver"
	"github.com/Belphemur/ArchiveSync/internal/overview"
)

type dependencies struct {
	archive    *archive.Client
	server     *mediaserver.Client
	sanitizer  overview.Sanitizer
	thumbnails cache.Store
}

func newDependencies(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*dependencies, error) {
	httpClient, err := httpx.NewClient(httpx.OptionsFromConfig(cfg), logger)
	if err != nil {
		return nil, err
	}

	thumbnails := newThumbnailCache(ctx, cfg, logger)

	archiveOpts := []archive.Option{archive.WithLogger(logger)}
	if thumbnails != nil {
		archiveOpts = append(archiveOpts, archive.WithCache(thumbnails))
	}
	archiveClient, err := archive.NewClient(cfg.Archive.URL, cfg.Archive.Token, httpClient, archiveOpts...)
	if err != nil {
		closeCache(thumbnails, logger)
		return nil, err
	}

	server, err := mediaserver.NewClient(cfg.MediaServer.URL, cfg.MediaServer.Token, httpClient, logger)
	if err != nil {
		closeCache(thumbnails, logger)
		return nil, err
	}

	sanitizer := overview.New(overview.Options{
		StripLinks:      cfg.Overview.StripLinks,
		StripHashtags:   cfg.Overview.StripHashtags,
		StripSeparators: cfg.Overview.StripSeparators,
		MaxLength:       cfg.Overview.MaxLength,
	})
	logger.Debug().Strs("rules", sanitizer.Rules()).Msg("Overview sanitizer configured")

	return &dependencies{
		archive:    archiveClient,
		server:     server,
		sanitizer:  sanitizer,
		thumbnails: thumbnails,
	}, nil
}

// newThumbnailCache returns nil when no cache is configured or Redis is
// unreachable; thumbnails are then downloaded on every run.
func newThumbnailCache(ctx context.Context, cfg *config.Config, logger zerolog.Logger) cache.Store {
	if cfg.Cache.Type != "redis" {
		return nil
	}
	store, err := cache.NewRedisStore(ctx, cache.RedisConfig{
		Address:  cfg.Cache.Redis.Address,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		TTL:      cfg.CacheTTL(),
	})
	if err != nil {
		logger.Warn().Err(err).Str("address", cfg.Cache.Redis.Address).Msg("Thumbnail cache unavailable, continuing without it")
		return nil
	}
	return store
}

func closeCache(c cache.Store, logger zerolog.Logger) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close thumbnail cache")
	}
}

func (d *dependencies) Close() {
	closeCache(d.thumbnails, zerolog.Nop())
}
