package httpx

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// AcceptEncoding is advertised on every request that does not set its own.
const AcceptEncoding = "gzip, br, zstd"

// decoder opens a decompressing reader over a response body
type decoder func(body io.Reader) (io.ReadCloser, error)

// decoders maps a content coding to its decoder. "x-gzip" is the legacy
// alias still sent by some reverse proxies in front of the archive.
var decoders = map[string]decoder{
	"gzip":   newGzipDecoder,
	"x-gzip": newGzipDecoder,
	"br":     newBrotliDecoder,
	"zstd":   newZstdDecoder,
}

func newGzipDecoder(body io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(body)
}

func newBrotliDecoder(body io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(brotli.NewReader(body)), nil
}

func newZstdDecoder(body io.Reader) (io.ReadCloser, error) {
	zr, err := zstd.NewReader(body)
	if err != nil {
		return nil, err
	}
	return zr.IOReadCloser(), nil
}

// compressionTransport wraps an http.RoundTripper to negotiate gzip, brotli
// and zstd, and hands callers the decoded archive record or thumbnail
type compressionTransport struct {
	transport http.RoundTripper
}

// NewCompressionTransport wraps base with transparent response decompression.
func NewCompressionTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &compressionTransport{transport: base}
}

// RoundTrip advertises AcceptEncoding and decodes every content coding of the
// response, outermost first
func (t *compressionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Never mutate the caller's request; conditional headers set by the
	// archive client must survive untouched
	req = req.Clone(req.Context())
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", AcceptEncoding)
	}

	resp, err := t.transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	// HEAD, 204 and 304 (a revalidated thumbnail) carry nothing to decode
	if resp.Body == nil || resp.Body == http.NoBody {
		return resp, nil
	}

	codings := parseContentEncoding(resp.Header.Get("Content-Encoding"))
	if len(codings) == 0 {
		return resp, nil
	}
	for _, coding := range codings {
		if _, ok := decoders[coding]; !ok {
			// Unknown coding: hand the body over untouched
			return resp, nil
		}
	}

	body := &decompressReadCloser{closers: []io.Closer{resp.Body}}
	var reader io.Reader = resp.Body
	// Codings are listed in the order they were applied
	for i := len(codings) - 1; i >= 0; i-- {
		rc, err := decoders[codings[i]](reader)
		if err != nil {
			_ = body.Close()
			return nil, err
		}
		body.closers = append(body.closers, rc)
		reader = rc
	}
	body.reader = reader

	resp.Body = body
	// The decoded length is unknown
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true

	return resp, nil
}

// decompressReadCloser reads through the decoder chain and closes every
// decoder and the wire body
type decompressReadCloser struct {
	reader  io.Reader
	closers []io.Closer
}

func (d *decompressReadCloser) Read(p []byte) (int, error) {
	return d.reader.Read(p)
}

// Close closes innermost first and returns the first error
func (d *decompressReadCloser) Close() error {
	var first error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// parseContentEncoding splits a Content-Encoding header into lowercased
// codings in the order they were applied. "identity" entries are dropped.
func parseContentEncoding(header string) []string {
	var codings []string
	for _, part := range strings.Split(header, ",") {
		coding := strings.ToLower(strings.TrimSpace(part))
		if coding == "" || coding == "identity" {
			continue
		}
		codings = append(codings, coding)
	}
	return codings
}
