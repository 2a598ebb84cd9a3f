// Package mediaserver writes item metadata and artwork to a Jellyfin server.
package mediaserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Belphemur/ArchiveSync/internal/apperrors"
	"github.com/Belphemur/ArchiveSync/internal/httpx"
	"github.com/Belphemur/ArchiveSync/internal/models"
)

// ServiceName identifies the media server in errors and logs.
const ServiceName = "media server"

// ImageContentType is sent with every artwork upload. The body is base64.
const ImageContentType = "image/jpeg"

// Client posts updates to the Jellyfin items API.
type Client struct {
	httpClient httpx.Doer
	baseURL    *url.URL
	token      string
	logger     zerolog.Logger
}

// NewClient creates a media server client for baseURL authenticated with token.
func NewClient(baseURL, token string, httpClient httpx.Doer, logger zerolog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse media server URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("media server URL %q must be absolute", baseURL)
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
	return &Client{
		httpClient: httpClient,
		baseURL:    base,
		token:      strings.TrimSpace(token),
		logger:     logger.With().Str("service", "mediaserver").Logger(),
	}, nil
}

// UpdateItem replaces the metadata of the item at path, e.g. "Items/{id}".
// Paths are already escaped and resolve against the base URL.
func (c *Client) UpdateItem(ctx context.Context, path string, payload *models.ItemUpdate) error {
	if payload == nil {
		return apperrors.NewRemoteWriteFailure(ServiceName, path, 0, errors.New("nil payload"))
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return apperrors.NewRemoteWriteFailure(ServiceName, path, 0, fmt.Errorf("encode payload: %w", err))
	}
	return c.post(ctx, path, "application/json", body)
}

// UpdateItemImage uploads base64 encoded artwork to path, e.g.
// "Items/{id}/Images/Primary".
func (c *Client) UpdateItemImage(ctx context.Context, path string, image []byte) error {
	if len(image) == 0 {
		return apperrors.NewRemoteWriteFailure(ServiceName, path, 0, errors.New("empty image"))
	}
	return c.post(ctx, path, ImageContentType, image)
}

func (c *Client) post(ctx context.Context, path, contentType string, body []byte) error {
	ref, err := url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return apperrors.NewRemoteWriteFailure(ServiceName, path, 0, fmt.Errorf("parse path: %w", err))
	}
	endpoint := c.baseURL.ResolveReference(ref)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return apperrors.NewRemoteWriteFailure(ServiceName, path, 0, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", fmt.Sprintf("MediaBrowser Token=%q", c.token))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewRemoteWriteFailure(ServiceName, path, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Warn().
			Str("path", path).
			Int("statusCode", resp.StatusCode).
			Str("response", strings.TrimSpace(string(detail))).
			Msg("Media server rejected write")

		var cause error
		if msg := strings.TrimSpace(string(detail)); msg != "" {
			cause = errors.New(msg)
		}
		return apperrors.NewRemoteWriteFailure(ServiceName, path, resp.StatusCode, cause)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	c.logger.Debug().Str("path", path).Int("statusCode", resp.StatusCode).Msg("Media server write accepted")
	return nil
}
