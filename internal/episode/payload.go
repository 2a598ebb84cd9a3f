package episode

import (
	"github.com/Belphemur/ArchiveSync/internal/models"
	"github.com/Belphemur/ArchiveSync/internal/overview"
)

// BuildUpdate derives the media server payload for itemID from an archive
// video record. The result fully overwrites the listed item fields: genres,
// tags and provider IDs are reset, the studio is replaced, and the published
// year is written to the production year and both index numbers so the
// episode sorts by year in every media server view.
func BuildUpdate(itemID string, video *models.ArchiveVideo, sanitizer overview.Sanitizer) (*models.ItemUpdate, error) {
	published, err := ParsePublished(video.Published)
	if err != nil {
		return nil, err
	}
	year := published.Year()

	return &models.ItemUpdate{
		ID:                itemID,
		Name:              video.Title,
		GenreItems:        []models.NameIDPair{},
		Tags:              []string{},
		ProductionYear:    year,
		ProviderIDs:       map[string]string{},
		IndexNumber:       year,
		ParentIndexNumber: year,
		PremiereDate:      FormatPremiere(published),
		Overview:          describe(video.Description, sanitizer),
		Studios:           []models.NameIDPair{{Name: models.ArchiveStudio}},
	}, nil
}

// describe returns the "no description" marker for an empty description and
// the sanitized text otherwise.
func describe(raw string, sanitizer overview.Sanitizer) models.Overview {
	if raw == "" {
		return models.NoOverview()
	}
	if sanitizer == nil {
		sanitizer = overview.Default()
	}
	return models.OverviewText(sanitizer.Sanitize(raw))
}
