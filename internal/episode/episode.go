package episode

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/Belphemur/ArchiveSync/internal/apperrors"
	"github.com/Belphemur/ArchiveSync/internal/metrics"
	"github.com/Belphemur/ArchiveSync/internal/models"
	"github.com/Belphemur/ArchiveSync/internal/overview"
)

// Archive is the read side: the video archive the metadata comes from.
type Archive interface {
	// GetVideo returns the video record for id.
	GetVideo(ctx context.Context, id string) (*models.ArchiveVideo, error)
	// GetThumbnail returns the base64-encoded image behind a thumbnail reference.
	GetThumbnail(ctx context.Context, reference string) ([]byte, error)
}

// MediaServer is the write side: the library item being updated.
type MediaServer interface {
	UpdateItem(ctx context.Context, path string, payload *models.ItemUpdate) error
	UpdateItemImage(ctx context.Context, path string, image []byte) error
}

// Episode synchronizes one archive video into one media server item.
// It holds no state beyond the two identifiers and its collaborators.
type Episode struct {
	ArchiveID string
	ItemID    string

	archive   Archive
	server    MediaServer
	sanitizer overview.Sanitizer
	logger    zerolog.Logger
}

// Option configures an Episode.
type Option func(*Episode)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Episode) {
		e.logger = logger
	}
}

// WithSanitizer replaces the default overview sanitizer.
func WithSanitizer(s overview.Sanitizer) Option {
	return func(e *Episode) {
		if s != nil {
			e.sanitizer = s
		}
	}
}

// New creates an Episode. It performs no I/O. The item ID must be provided by
// the caller; it is never derived from the archive ID.
func New(archiveID, itemID string, archive Archive, server MediaServer, opts ...Option) (*Episode, error) {
	if itemID == "" {
		return nil, apperrors.ErrMissingItemID
	}
	if archiveID == "" {
		return nil, errors.New("archive video ID is required")
	}
	if archive == nil || server == nil {
		return nil, errors.New("archive and media server are required")
	}

	e := &Episode{
		ArchiveID: archiveID,
		ItemID:    itemID,
		archive:   archive,
		server:    server,
		sanitizer: overview.Default(),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With().Str("archiveID", archiveID).Str("itemID", itemID).Logger()
	return e, nil
}

// ItemPath is the escaped media server path of the item's metadata.
func (e *Episode) ItemPath() string {
	return "Items/" + url.PathEscape(e.ItemID)
}

// ImagePath is the media server path of the item's primary image.
func (e *Episode) ImagePath() string {
	return e.ItemPath() + "/Images/Primary"
}

// Preview derives the payload UpdateMetadata would send, without writing it.
func (e *Episode) Preview(video *models.ArchiveVideo) (*models.ItemUpdate, error) {
	if video == nil {
		return nil, errors.New("archive video record is nil")
	}
	return BuildUpdate(e.ItemID, video, e.sanitizer)
}

// FetchRecord retrieves the archive video record. It is separate from Sync so
// callers can inspect the record before anything is written.
func (e *Episode) FetchRecord(ctx context.Context) (*models.ArchiveVideo, error) {
	start := time.Now()
	video, err := e.archive.GetVideo(ctx, e.ArchiveID)
	metrics.ObserveStep(metrics.StepFetch, start, err)
	if err != nil {
		e.logger.Error().Err(err).Msg("Failed to fetch archive video")
		return nil, err
	}

	e.logger.Debug().
		Str("title", video.Title).
		Str("channel", video.ChannelName).
		Str("published", video.Published).
		Str("thumbnail", video.ThumbnailURL).
		Msg("Fetched archive video")
	return video, nil
}

// Sync writes the metadata and then the artwork. The two writes are not
// atomic: if the artwork fails the metadata stays updated. Running Sync again
// with the same record is safe.
func (e *Episode) Sync(ctx context.Context, video *models.ArchiveVideo) error {
	if video == nil {
		return errors.New("archive video record is nil")
	}
	if err := e.UpdateMetadata(ctx, video); err != nil {
		return err
	}
	return e.UpdateArtwork(ctx, video)
}

// UpdateMetadata derives the item payload and posts it to the media server.
func (e *Episode) UpdateMetadata(ctx context.Context, video *models.ArchiveVideo) error {
	start := time.Now()
	payload, err := BuildUpdate(e.ItemID, video, e.sanitizer)
	if err != nil {
		metrics.ObserveStep(metrics.StepMetadata, start, err)
		e.logger.Error().Err(err).Str("published", video.Published).Msg("Failed to derive item metadata")
		return err
	}

	e.logger.Info().
		Str("premiereDate", payload.PremiereDate).
		Int("year", payload.ProductionYear).
		Msg("Derived item metadata")
	e.logger.Debug().Interface("payload", payload).Msg("Item metadata payload")

	path := e.ItemPath()
	err = e.server.UpdateItem(ctx, path, payload)
	metrics.ObserveStep(metrics.StepMetadata, start, err)
	if err != nil {
		e.logger.Error().Err(err).Str("path", path).Interface("payload", payload).Msg("Failed to update item metadata")
		return err
	}

	e.logger.Info().Str("path", path).Msg("Updated item metadata")
	return nil
}

// UpdateArtwork copies the archive thumbnail to the item's primary image.
func (e *Episode) UpdateArtwork(ctx context.Context, video *models.ArchiveVideo) error {
	start := time.Now()
	if video.ThumbnailURL == "" {
		err := apperrors.NewRemoteLookupFailure("archive", "thumbnail of video "+e.ArchiveID, errors.New("video has no thumbnail reference"))
		metrics.ObserveStep(metrics.StepArtwork, start, err)
		e.logger.Error().Err(err).Msg("Failed to fetch thumbnail")
		return err
	}

	image, err := e.archive.GetThumbnail(ctx, video.ThumbnailURL)
	if err != nil {
		metrics.ObserveStep(metrics.StepArtwork, start, err)
		e.logger.Error().Err(err).Str("thumbnail", video.ThumbnailURL).Msg("Failed to fetch thumbnail")
		return err
	}
	metrics.ThumbnailBytes.Observe(float64(len(image)))

	path := e.ImagePath()
	err = e.server.UpdateItemImage(ctx, path, image)
	metrics.ObserveStep(metrics.StepArtwork, start, err)
	if err != nil {
		e.logger.Error().Err(err).Str("path", path).Int("size", len(image)).Msg("Failed to update item image")
		return err
	}

	e.logger.Info().Str("path", path).Int("size", len(image)).Msg("Updated item image")
	return nil
}
