// Package rest implements the generic StarkBank operations shared by every
// resource: fetch by id, list, stream and page, plus the write operations.
package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/coachpo/starkbank/errs"
	"github.com/coachpo/starkbank/internal/transport"
	"github.com/coachpo/starkbank/pkg/observability"
	"github.com/coachpo/starkbank/pkg/user"
)

// Supported Accept-Language values.
const (
	LanguageEnglish    = "en-US"
	LanguagePortuguese = "pt-BR"
)

// Client carries the credentials and transport settings for API calls. It is
// immutable after New and safe for concurrent use.
type Client struct {
	user      user.User
	transport *transport.Transport
}

// Option customises a Client.
type Option func(*transport.Config)

// WithHost points the client at another API root, such as a local fake.
func WithHost(host string) Option {
	return func(cfg *transport.Config) { cfg.Host = host }
}

// WithLanguage selects the language of remote error messages.
func WithLanguage(language string) Option {
	return func(cfg *transport.Config) { cfg.Language = language }
}

// WithTimeout bounds each HTTP attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(cfg *transport.Config) { cfg.Timeout = timeout }
}

// WithRateLimit caps outgoing requests per second. Zero disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(cfg *transport.Config) {
		cfg.RateLimit = perSecond
		cfg.Burst = burst
	}
}

// WithRetry tunes the retry budget applied to GET requests.
func WithRetry(maxAttempts uint, initialBackoff, maxElapsed time.Duration) Option {
	return func(cfg *transport.Config) {
		cfg.MaxAttempts = maxAttempts
		cfg.InitialBackoff = initialBackoff
		cfg.MaxElapsed = maxElapsed
	}
}

// WithLogger overrides the global logger for this client.
func WithLogger(logger observability.Logger) Option {
	return func(cfg *transport.Config) { cfg.Logger = logger }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(cfg *transport.Config) { cfg.HTTPClient = client }
}

// WithMeter records request, retry and page metrics on meter.
func WithMeter(meter metric.Meter) Option {
	return func(cfg *transport.Config) { cfg.Meter = meter }
}

// New builds a client for u.
func New(u user.User, opts ...Option) (*Client, error) {
	var cfg transport.Config
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	switch strings.TrimSpace(cfg.Language) {
	case "", LanguageEnglish, LanguagePortuguese:
	default:
		return nil, errs.Input("Client", fmt.Sprintf("language must be %s or %s, got %q", LanguageEnglish, LanguagePortuguese, cfg.Language))
	}
	tr, err := transport.New(u, cfg)
	if err != nil {
		return nil, err
	}
	return &Client{user: u, transport: tr}, nil
}

// User returns the credentials the client signs with.
func (c *Client) User() user.User { return c.user }

var defaultClient atomic.Pointer[Client]

// SetDefault installs the process-wide client used when an operation receives
// a nil client. It may be called once.
func SetDefault(c *Client) error {
	if c == nil {
		return errs.Input("Client", "default client must not be nil")
	}
	if !defaultClient.CompareAndSwap(nil, c) {
		return errs.Input("Client", "default client is already configured")
	}
	return nil
}

// Default returns the process-wide client, or an InputError when none is set.
func Default() (*Client, error) {
	if c := defaultClient.Load(); c != nil {
		return c, nil
	}
	return nil, errs.Input("Client", "no client given and no default client configured")
}

func resolve(c *Client) (*Client, error) {
	if c != nil {
		return c, nil
	}
	return Default()
}

func (c *Client) do(ctx context.Context, resource, endpoint, method, path string, query url.Values, body []byte) ([]byte, error) {
	resp, err := c.transport.Do(ctx, transport.Request{
		Method:   method,
		Path:     path,
		Query:    query,
		Body:     body,
		Resource: resource,
		Endpoint: endpoint,
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
