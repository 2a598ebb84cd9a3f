// Package cache keeps encoded thumbnails between runs together with the HTTP
// validators the archive sent for them, so a re-sync can revalidate the
// artwork with a conditional request instead of downloading it again.
package cache

import (
	"context"
	"net/http"
)

// Thumbnail is a base64 encoded thumbnail and the validators of the response
// it was encoded from.
type Thumbnail struct {
	Encoded      []byte
	ETag         string
	LastModified string
}

// Revalidatable reports whether the archive gave the thumbnail any validator.
// Entries without one can never be checked for freshness and are not stored.
func (t *Thumbnail) Revalidatable() bool {
	return t != nil && len(t.Encoded) > 0 && (t.ETag != "" || t.LastModified != "")
}

// Condition sets the conditional request headers for t on req.
func (t *Thumbnail) Condition(req *http.Request) {
	if t == nil {
		return
	}
	if t.ETag != "" {
		req.Header.Set("If-None-Match", t.ETag)
	}
	if t.LastModified != "" {
		req.Header.Set("If-Modified-Since", t.LastModified)
	}
}

// FromResponse captures the validators of resp for the encoded body.
func FromResponse(resp *http.Response, encoded []byte) *Thumbnail {
	return &Thumbnail{
		Encoded:      encoded,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}
}

// Store persists thumbnails keyed by their resolved archive URL.
type Store interface {
	// Load returns nil and no error when nothing is stored for reference.
	Load(ctx context.Context, reference string) (*Thumbnail, error)
	Save(ctx context.Context, reference string, t *Thumbnail) error
	Close() error
}
