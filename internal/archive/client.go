// Package archive reads video records and thumbnails from a TubeArchivist
// instance.
package archive

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Belphemur/ArchiveSync/internal/apperrors"
	"github.com/Belphemur/ArchiveSync/internal/cache"
	"github.com/Belphemur/ArchiveSync/internal/httpx"
	"github.com/Belphemur/ArchiveSync/internal/metrics"
	"github.com/Belphemur/ArchiveSync/internal/models"
)

// ServiceName identifies the archive in errors and logs.
const ServiceName = "archive"

const (
	maxRecordBytes    = 4 << 20
	maxThumbnailBytes = 32 << 20
)

// Client talks to the TubeArchivist REST API.
type Client struct {
	httpClient httpx.Doer
	baseURL    *url.URL
	token      string
	thumbnails cache.Store
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithCache keeps encoded thumbnails in store, keyed by their resolved URL.
func WithCache(c cache.Store) Option {
	return func(cl *Client) {
		cl.thumbnails = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

// NewClient creates an archive client for baseURL authenticated with token.
func NewClient(baseURL, token string, httpClient httpx.Doer, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse archive URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("archive URL %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
		if base.RawPath != "" {
			base.RawPath += "/"
		}
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	c := &Client{
		httpClient: httpClient,
		baseURL:    base,
		token:      strings.TrimSpace(token),
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("service", ServiceName).Logger()
	return c, nil
}

// GetVideo fetches the record of the video with the given ID. A missing video
// is reported as a RemoteLookupFailure wrapping apperrors.ErrNotFound.
func (c *Client) GetVideo(ctx context.Context, id string) (*models.ArchiveVideo, error) {
	resource := "video " + id
	endpoint := c.baseURL.ResolveReference(&url.URL{
		Path:    "api/video/" + id + "/",
		RawPath: "api/video/" + url.PathEscape(id) + "/",
	})

	body, err := c.get(ctx, endpoint.String(), "application/json", maxRecordBytes)
	if err != nil {
		return nil, c.lookupFailure(resource, "video", id, err)
	}

	video, err := decodeVideo(body)
	if err != nil {
		return nil, apperrors.NewRemoteLookupFailure(ServiceName, resource, err)
	}
	if video.ID == "" {
		video.ID = id
	}

	c.logger.Debug().Str("archiveID", id).Str("title", video.Title).Msg("Fetched archive video")
	return video, nil
}

// GetThumbnail downloads the thumbnail at reference and returns it base64
// encoded. Relative references resolve against the archive base URL. A stored
// copy is only reused after the archive answers a conditional request with
// 304 Not Modified.
func (c *Client) GetThumbnail(ctx context.Context, reference string) ([]byte, error) {
	resource := "thumbnail " + reference
	target, err := c.resolve(reference)
	if err != nil {
		return nil, apperrors.NewRemoteLookupFailure(ServiceName, resource, err)
	}

	cached := c.loadThumbnail(ctx, target)
	resp, err := c.send(ctx, target, "image/*", cached.Condition)
	if err != nil {
		return nil, c.lookupFailure(resource, "thumbnail", reference, err)
	}
	defer resp.Body.Close()

	if cached != nil && resp.StatusCode == http.StatusNotModified {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		metrics.ThumbnailCacheTotal.WithLabelValues(metrics.CacheNotModified).Inc()
		c.logger.Debug().Str("thumbnail", target).Str("etag", cached.ETag).Msg("Thumbnail not modified, using cached copy")
		return cached.Encoded, nil
	}

	raw, err := c.readOK(resp, target, maxThumbnailBytes)
	if err != nil {
		return nil, c.lookupFailure(resource, "thumbnail", reference, err)
	}
	if len(raw) == 0 {
		return nil, apperrors.NewRemoteLookupFailure(ServiceName, resource, errors.New("empty thumbnail body"))
	}
	encoded := make([]byte, base64.StdEncoding.EncodedLen(len(raw)))
	base64.StdEncoding.Encode(encoded, raw)

	c.saveThumbnail(ctx, target, cached != nil, cache.FromResponse(resp, encoded))

	c.logger.Debug().Str("thumbnail", target).Int("size", len(encoded)).Msg("Fetched thumbnail")
	return encoded, nil
}

func (c *Client) loadThumbnail(ctx context.Context, target string) *cache.Thumbnail {
	if c.thumbnails == nil {
		return nil
	}
	thumb, err := c.thumbnails.Load(ctx, target)
	if err != nil {
		metrics.ThumbnailCacheTotal.WithLabelValues(metrics.CacheError).Inc()
		c.logger.Warn().Err(err).Str("thumbnail", target).Msg("Thumbnail cache read failed")
		return nil
	}
	return thumb
}

func (c *Client) saveThumbnail(ctx context.Context, target string, replaced bool, thumb *cache.Thumbnail) {
	if c.thumbnails == nil {
		return
	}
	result := metrics.CacheMiss
	if replaced {
		result = metrics.CacheChanged
	}
	metrics.ThumbnailCacheTotal.WithLabelValues(result).Inc()

	if !thumb.Revalidatable() {
		c.logger.Debug().Str("thumbnail", target).Msg("Thumbnail has no validators, not caching it")
		return
	}
	if err := c.thumbnails.Save(ctx, target, thumb); err != nil {
		metrics.ThumbnailCacheTotal.WithLabelValues(metrics.CacheError).Inc()
		c.logger.Warn().Err(err).Str("thumbnail", target).Msg("Thumbnail cache write failed")
	}
}

func (c *Client) resolve(reference string) (string, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return "", errors.New("empty reference")
	}
	ref, err := url.Parse(reference)
	if err != nil {
		return "", fmt.Errorf("parse reference: %w", err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	// "/cache/videos/x.jpg" and "cache/videos/x.jpg" both live under the base path
	ref.Path = strings.TrimPrefix(ref.Path, "/")
	ref.RawPath = strings.TrimPrefix(ref.RawPath, "/")
	return c.baseURL.ResolveReference(ref).String(), nil
}

type statusError struct {
	StatusCode int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

func (c *Client) lookupFailure(resource, kind, id string, err error) error {
	var se *statusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		return apperrors.NewRemoteLookupFailure(ServiceName, resource, apperrors.NewNotFoundError(kind, id))
	}
	return apperrors.NewRemoteLookupFailure(ServiceName, resource, err)
}

func (c *Client) get(ctx context.Context, target, accept string, limit int64) ([]byte, error) {
	resp, err := c.send(ctx, target, accept, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return c.readOK(resp, target, limit)
}

// send issues an authenticated GET. prepare, when set, may add headers.
func (c *Client) send(ctx context.Context, target, accept string, prepare func(*http.Request)) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", accept)
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}
	if prepare != nil {
		prepare(req)
	}
	return c.httpClient.Do(req)
}

// readOK returns the body of a 2xx response, up to limit bytes.
func (c *Client) readOK(resp *http.Response, target string, limit int64) ([]byte, error) {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		c.logger.Warn().Str("url", target).Int("statusCode", resp.StatusCode).Msg("Archive request failed")
		return nil, &statusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("response exceeds %d bytes", limit)
	}
	return body, nil
}

// decodeVideo accepts both the bare record and the {"data": {...}} envelope
// returned by newer archive versions.
func decodeVideo(body []byte) (*models.ArchiveVideo, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode video record: %w", err)
	}

	record := body
	if trimmed := bytes.TrimSpace(envelope.Data); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		record = trimmed
	}

	var video models.ArchiveVideo
	if err := json.Unmarshal(record, &video); err != nil {
		return nil, fmt.Errorf("decode video record: %w", err)
	}
	return &video, nil
}
