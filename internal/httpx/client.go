// Package httpx builds the HTTP clients shared by the Archive and MediaServer
// integrations: proxy support, response decompression, a fixed User-Agent and
// bounded retries for idempotent requests.
package httpx

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/failsafehttp"
	"github.com/rs/zerolog"

	"github.com/Belphemur/ArchiveSync/internal/config"
)

// Options configures NewClient.
type Options struct {
	Timeout       time.Duration
	ProxyURL      string
	UserAgent     string
	MaxRetries    int
	RetryDelay    time.Duration
	RetryMaxDelay time.Duration
}

// OptionsFromConfig maps the process configuration onto client options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Timeout:       cfg.Timeout(),
		ProxyURL:      cfg.ProxyConnectionString,
		UserAgent:     cfg.UserAgent,
		MaxRetries:    cfg.Retry.MaxRetries,
		RetryDelay:    cfg.RetryDelay(),
		RetryMaxDelay: cfg.RetryMaxDelay(),
	}
}

// NewClient builds an http.Client. GET and HEAD requests are retried on
// connection errors, 429 and 5xx responses; every other method is sent once.
// When retries run out the last response or error is returned as is.
func NewClient(opts Options, logger zerolog.Logger) (*http.Client, error) {
	// Clone DefaultTransport to keep its pooling and HTTP/2 settings
	base := http.DefaultTransport.(*http.Transport).Clone()
	if opts.ProxyURL != "" {
		proxyURL, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy URL: %w", err)
		}
		base.Proxy = http.ProxyURL(proxyURL)
	}

	var transport http.RoundTripper = NewCompressionTransport(base)
	transport = &userAgentTransport{transport: transport, userAgent: strings.TrimSpace(opts.UserAgent)}

	if opts.MaxRetries > 0 {
		transport = &idempotentRetryTransport{
			retrying: failsafehttp.NewRoundTripper(transport, newRetryPolicy(opts, logger)),
			direct:   transport,
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout, Transport: transport}, nil
}

func newRetryPolicy(opts Options, logger zerolog.Logger) failsafe.Policy[*http.Response] {
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = time.Second
	}
	maxDelay := opts.RetryMaxDelay
	if maxDelay < delay {
		maxDelay = delay
	}

	return failsafehttp.NewRetryPolicyBuilder().
		WithBackoff(delay, maxDelay).
		WithMaxRetries(opts.MaxRetries).
		ReturnLastFailure().
		OnRetry(func(e failsafe.ExecutionEvent[*http.Response]) {
			event := logger.Warn().Int("attempt", e.Attempts())
			if err := e.LastError(); err != nil {
				event = event.Err(err)
			}
			if resp := e.LastResult(); resp != nil {
				event = event.Int("statusCode", resp.StatusCode)
			}
			event.Msg("Retrying HTTP request")
		}).
		Build()
}

type userAgentTransport struct {
	transport http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.userAgent == "" || req.Header.Get("User-Agent") != "" {
		return t.transport.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.transport.RoundTrip(req)
}

// idempotentRetryTransport routes only replayable requests through the
// retrying transport.
type idempotentRetryTransport struct {
	retrying http.RoundTripper
	direct   http.RoundTripper
}

func (t *idempotentRetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if (req.Method == http.MethodGet || req.Method == http.MethodHead) && (req.Body == nil || req.Body == http.NoBody) {
		return t.retrying.RoundTrip(req)
	}
	return t.direct.RoundTrip(req)
}

// Doer is the subset of *http.Client the service clients depend on.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}
