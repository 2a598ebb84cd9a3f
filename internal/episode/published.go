package episode

import (
	"strings"
	"time"

	"github.com/Belphemur/ArchiveSync/internal/apperrors"
)

// premiereLayout is RFC 3339 with fractional seconds only when non-zero.
const premiereLayout = time.RFC3339Nano

// publishedLayouts are tried in order. Fractional seconds are accepted after
// the seconds field by time.Parse even though the layouts omit them.
var publishedLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParsePublished parses an ISO-8601 date or date-time. Values without an
// offset are interpreted as UTC. A space may separate date and time.
func ParsePublished(value string) (time.Time, error) {
	s := strings.TrimSpace(value)
	if len(s) > 10 && s[10] == ' ' {
		s = s[:10] + "T" + s[11:]
	}

	var firstErr error
	for _, layout := range publishedLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, &apperrors.MalformedDateError{Value: value, Err: firstErr}
}

// FormatPremiere renders t the way the media server expects PremiereDate.
func FormatPremiere(t time.Time) string {
	return t.Format(premiereLayout)
}
