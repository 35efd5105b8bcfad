// Package transport signs and sends StarkBank API requests and maps responses
// onto the errs taxonomy.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"

	"github.com/coachpo/starkbank/errs"
	"github.com/coachpo/starkbank/internal/telemetry"
	"github.com/coachpo/starkbank/pkg/observability"
	"github.com/coachpo/starkbank/pkg/user"
)

// SDKVersion is reported in the User-Agent header.
const SDKVersion = "2.0.0"

// APIVersion is appended to the host root.
const APIVersion = "v2/"

// Request describes one API call. Path is relative to the versioned root.
// Endpoint is the id-free route used to label metrics; it defaults to Path.
type Request struct {
	Method   string
	Path     string
	Query    url.Values
	Body     []byte
	Resource string
	Endpoint string
}

func (r Request) metricEndpoint() string {
	if r.Endpoint != "" {
		return r.Endpoint
	}
	return r.Path
}

// Response is a successful (2xx) API answer.
type Response struct {
	Status int
	Body   []byte
}

// Config tunes the transport. Zero values select the defaults.
type Config struct {
	// Host overrides the environment's API root, e.g. for a local fake.
	Host           string
	Language       string
	Timeout        time.Duration
	RateLimit      float64
	Burst          int
	MaxAttempts    uint
	InitialBackoff time.Duration
	MaxElapsed     time.Duration
	HTTPClient     *http.Client
	Logger         observability.Logger
	// Meter, when set, records request, retry and page metrics. Instruments
	// takes precedence when both are given.
	Meter          metric.Meter
	Instruments    *telemetry.Instruments
	Clock          func() time.Time
}

const (
	defaultTimeout        = 15 * time.Second
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 250 * time.Millisecond
	defaultMaxElapsed     = 30 * time.Second
)

// Transport is immutable after construction and safe for concurrent use.
type Transport struct {
	user      user.User
	root      string
	language  string
	client    *http.Client
	limiter   *rate.Limiter
	attempts  uint
	initial   time.Duration
	elapsed   time.Duration
	logger    observability.Logger
	metrics   *telemetry.Instruments
	clock     func() time.Time
	userAgent string
}

// New builds a transport for u.
func New(u user.User, cfg Config) (*Transport, error) {
	if u == nil {
		return nil, errs.Input("User", "a user is required to sign requests")
	}
	if u.PrivateKey() == nil {
		return nil, errs.Input("User", "user has no private key")
	}
	root := strings.TrimSpace(cfg.Host)
	if root == "" {
		root = u.Environment().Host()
	}
	if !strings.HasSuffix(root, "/") {
		root += "/"
	}
	if _, err := url.Parse(root); err != nil {
		return nil, errs.Input("Client", fmt.Sprintf("invalid host %q", cfg.Host), errs.WithCause(err))
	}
	language := strings.TrimSpace(cfg.Language)
	if language == "" {
		language = "en-US"
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	limit := rate.Inf
	burst := cfg.Burst
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
		if burst <= 0 {
			burst = 1
		}
	}
	attempts := cfg.MaxAttempts
	if attempts == 0 {
		attempts = defaultMaxAttempts
	}
	initial := cfg.InitialBackoff
	if initial <= 0 {
		initial = defaultInitialBackoff
	}
	elapsed := cfg.MaxElapsed
	if elapsed <= 0 {
		elapsed = defaultMaxElapsed
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	instruments := cfg.Instruments
	if instruments == nil && cfg.Meter != nil {
		built, err := telemetry.NewInstruments(cfg.Meter)
		if err != nil {
			return nil, errs.Input("Client", "register metric instruments", errs.WithCause(err))
		}
		instruments = built
	}
	return &Transport{
		user:      u,
		root:      root + APIVersion,
		language:  language,
		client:    client,
		limiter:   rate.NewLimiter(limit, burst),
		attempts:  attempts,
		initial:   initial,
		elapsed:   elapsed,
		logger:    cfg.Logger,
		metrics:   instruments,
		clock:     clock,
		userAgent: UserAgent(),
	}, nil
}

// UserAgent returns the User-Agent header value, e.g. Go-1.25.1-SDK-starkbank-2.0.0.
func UserAgent() string {
	return "Go-" + strings.TrimPrefix(runtime.Version(), "go") + "-SDK-starkbank-" + SDKVersion
}

// Root returns the versioned API root every path is resolved against.
func (t *Transport) Root() string { return t.root }

// Instruments returns the metric instruments shared with callers, possibly nil.
func (t *Transport) Instruments() *telemetry.Instruments { return t.metrics }

// Do sends req. GET requests are retried on transient failures; other methods
// are sent exactly once. Every failure is an *errs.E.
func (t *Transport) Do(ctx context.Context, req Request) (Response, error) {
	requestID := uuid.NewString()
	logger := observability.Or(t.logger)
	attempt := 0
	operation := func() (Response, error) {
		attempt++
		resp, err := t.send(ctx, req, requestID, attempt)
		if err == nil {
			return resp, nil
		}
		if req.Method != http.MethodGet || !errs.Retryable(err) || ctx.Err() != nil {
			return resp, backoff.Permanent(err)
		}
		return resp, err
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = t.initial
	resp, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(t.attempts),
		backoff.WithMaxElapsedTime(t.elapsed),
		backoff.WithNotify(func(err error, wait time.Duration) {
			t.metrics.RecordRetry(ctx, req.Method, req.metricEndpoint(), string(errs.CodeOf(err)))
			logger.Debug("starkbank request retry",
				observability.String("request_id", requestID),
				observability.Duration("wait", wait),
				observability.Err(err),
			)
		}),
	)
	if err != nil {
		if errs.CodeOf(err) == "" {
			err = errs.New(req.Resource, errs.CodeNetwork, errs.WithMessage("request aborted"), errs.WithCause(err))
		}
		return Response{}, err
	}
	return resp, nil
}

func (t *Transport) send(ctx context.Context, req Request, requestID string, attempt int) (Response, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return Response{}, errs.New(req.Resource, errs.CodeNetwork, errs.WithMessage("rate limiter wait"), errs.WithCause(err))
	}
	endpoint := t.root + strings.TrimPrefix(req.Path, "/")
	if len(req.Query) > 0 {
		endpoint += "?" + req.Query.Encode()
	}
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, endpoint, body)
	if err != nil {
		return Response{}, errs.New(req.Resource, errs.CodeNetwork, errs.WithMessage("create request"), errs.WithCause(err))
	}
	t.sign(httpReq, req.Body)

	started := t.clock()
	resp, err := t.client.Do(httpReq)
	if err != nil {
		mapped := errs.New(req.Resource, errs.CodeNetwork, errs.WithMessage(fmt.Sprintf("%s %s", req.Method, req.Path)), errs.WithCause(err))
		t.observe(ctx, req, requestID, attempt, 0, mapped, started)
		return Response{}, mapped
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		mapped := errs.New(req.Resource, errs.CodeNetwork, errs.WithMessage("read response body"), errs.WithCause(err))
		t.observe(ctx, req, requestID, attempt, resp.StatusCode, mapped, started)
		return Response{}, mapped
	}
	if err := MapStatus(req.Resource, resp.StatusCode, payload); err != nil {
		t.observe(ctx, req, requestID, attempt, resp.StatusCode, err, started)
		return Response{}, err
	}
	t.observe(ctx, req, requestID, attempt, resp.StatusCode, nil, started)
	return Response{Status: resp.StatusCode, Body: payload}, nil
}

func (t *Transport) sign(httpReq *http.Request, body []byte) {
	accessTime := strconv.FormatFloat(float64(t.clock().UnixMicro())/1e6, 'f', 6, 64)
	accessID := t.user.AccessID()
	message := accessID + ":" + accessTime + ":" + string(body)
	httpReq.Header.Set("Access-Id", accessID)
	httpReq.Header.Set("Access-Time", accessTime)
	httpReq.Header.Set("Access-Signature", t.user.PrivateKey().Sign(message))
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", t.userAgent)
	httpReq.Header.Set("Accept-Language", t.language)
}

func (t *Transport) observe(ctx context.Context, req Request, requestID string, attempt, status int, err error, started time.Time) {
	elapsed := t.clock().Sub(started)
	code := string(errs.CodeOf(err))
	t.metrics.RecordRequest(ctx, req.Method, req.metricEndpoint(), status, code, elapsed)
	fields := []observability.Field{
		observability.String("request_id", requestID),
		observability.String("method", req.Method),
		observability.String("path", req.Path),
		observability.Int("attempt", attempt),
		observability.Int("status", status),
		observability.Duration("elapsed", elapsed),
	}
	if err != nil {
		fields = append(fields, observability.Err(err))
	}
	observability.Or(t.logger).Debug("starkbank request", fields...)
}

type errorEnvelope struct {
	Errors []errs.Detail `json:"errors"`
}

// MapStatus converts a non-2xx response into the SDK error taxonomy. It
// returns nil for 2xx statuses.
func MapStatus(resource string, status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	details := decodeDetails(body)
	message := http.StatusText(status)
	if len(details) > 0 && details[0].Message != "" {
		message = details[0].Message
	}
	opts := []errs.Option{errs.WithHTTP(status), errs.WithMessage(message), errs.WithDetails(details)}
	switch {
	case status == http.StatusNotFound:
		return errs.New(resource, errs.CodeNotFound, opts...)
	case status == http.StatusBadRequest && notFoundDetail(details):
		return errs.New(resource, errs.CodeNotFound, opts...)
	case status == http.StatusBadRequest:
		return errs.New(resource, errs.CodeInput, opts...)
	case status == http.StatusTooManyRequests:
		return errs.New(resource, errs.CodeRateLimited, opts...)
	case status >= http.StatusInternalServerError:
		return errs.New(resource, errs.CodeUnavailable, opts...)
	default:
		return errs.New(resource, errs.CodeRemote, opts...)
	}
}

func decodeDetails(body []byte) []errs.Detail {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}
	return envelope.Errors
}

func notFoundDetail(details []errs.Detail) bool {
	for _, d := range details {
		if d.Code == "invalidId" || strings.HasSuffix(d.Code, "NotFound") {
			return true
		}
	}
	return false
}
