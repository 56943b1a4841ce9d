package internal

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
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/net/http/httpguts"
	"golang.org/x/time/rate"
)

const (
	ContentTypeJSON   = "application/json"
	ContentTypeNDJSON = "application/x-ndjson"
	HeaderRequestID   = "X-Request-ID"
)

// BreakerSettings configures the optional circuit breaker.
type BreakerSettings struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:             "ucp",
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

type TransportOptions struct {
	HTTPClient     *http.Client
	Logger         *zap.Logger
	Limiter        *rate.Limiter
	Breaker        *BreakerSettings
	Metrics        *Metrics
	TracerProvider trace.TracerProvider
	// NewBackOff builds the delay schedule for one call's retries.
	NewBackOff func() backoff.BackOff
}

// Transport issues requests against the service base URL. It holds no per-call
// state and is safe for concurrent use.
type Transport struct {
	baseURL    string
	client     *http.Client
	stream     *http.Client
	timeout    time.Duration
	headers    http.Header
	maxRetries int
	newBackOff func() backoff.BackOff
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	metrics    *Metrics
	logger     *zap.Logger
}

// Request describes one logical call. Body is JSON-encoded when non-nil.
type Request struct {
	Op     string
	Method string
	Path   string
	Body   any
	Accept string
}

func NewTransport(cfg ClientConfig, opts TransportOptions) (*Transport, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	client := &http.Client{}
	if opts.HTTPClient != nil {
		c := *opts.HTTPClient
		client = &c
	}
	client.Timeout = cfg.Timeout
	if opts.TracerProvider != nil {
		base := client.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		client.Transport = otelhttp.NewTransport(base, otelhttp.WithTracerProvider(opts.TracerProvider))
	}
	stream := *client
	stream.Timeout = 0

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	headers := make(http.Header)
	headers.Set("Content-Type", ContentTypeJSON)
	headers.Set("User-Agent", userAgent)
	if cfg.APIKey != "" {
		headers.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	newBackOff := opts.NewBackOff
	if newBackOff == nil {
		newBackOff = defaultBackOff
	}

	t := &Transport{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		client:     client,
		stream:     &stream,
		timeout:    cfg.Timeout,
		headers:    headers,
		maxRetries: cfg.MaxRetries,
		newBackOff: newBackOff,
		limiter:    opts.Limiter,
		metrics:    opts.Metrics,
		logger:     logger,
	}
	if opts.Breaker != nil {
		t.breaker = newBreaker(*opts.Breaker, logger)
	}
	return t, nil
}

// ValidateConfig rejects configurations no request could be built from.
func ValidateConfig(cfg ClientConfig) error {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return &ConfigError{Field: "base_url", Reason: "is required"}
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return &ConfigError{Field: "base_url", Reason: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ConfigError{Field: "base_url", Reason: fmt.Sprintf("unsupported scheme %q", u.Scheme)}
	}
	if u.Host == "" {
		return &ConfigError{Field: "base_url", Reason: "missing host"}
	}
	if cfg.APIKey != "" && !httpguts.ValidHeaderFieldValue("Bearer "+cfg.APIKey) {
		return &ConfigError{Field: "api_key", Reason: "invalid API key format"}
	}
	if cfg.Timeout <= 0 {
		return &ConfigError{Field: "timeout", Reason: "must be positive"}
	}
	if cfg.MaxRetries < 0 {
		return &ConfigError{Field: "max_retries", Reason: "must not be negative"}
	}
	return nil
}

// Do performs req and returns the open 2xx response. The caller closes the
// body. Non-2xx responses are classified and never returned.
func (t *Transport) Do(ctx context.Context, req Request) (*http.Response, error) {
	resp, _, err := t.do(ctx, req, false)
	return resp, err
}

// Stream performs req for a long-lived body. The configured timeout bounds
// the wait for response headers only; release must be called once the body is
// no longer needed.
func (t *Transport) Stream(ctx context.Context, req Request) (resp *http.Response, release func(), err error) {
	return t.do(ctx, req, true)
}

// CloseIdleConnections releases pooled connections.
func (t *Transport) CloseIdleConnections() {
	t.client.CloseIdleConnections()
}

func (t *Transport) do(ctx context.Context, req Request, streaming bool) (*http.Response, func(), error) {
	payload, err := encodeJSON(req.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("encode %s request: %w", req.Op, err)
	}
	target := t.baseURL + req.Path

	var bo backoff.BackOff
	for attempt := 0; ; attempt++ {
		start := time.Now()
		resp, release, err := t.attempt(ctx, req, target, payload, streaming, attempt)
		t.metrics.ObserveRequest(req.Op, err, time.Since(start))
		if err == nil {
			return resp, release, nil
		}
		if attempt >= t.maxRetries || !IsRetryable(err) || ctx.Err() != nil {
			return nil, nil, err
		}

		if bo == nil {
			bo = t.newBackOff()
			bo.Reset()
		}
		delay := bo.NextBackOff()
		var rl *RateLimitError
		if errors.As(err, &rl) && rl.RetryAfter > 0 {
			delay = rl.RetryAfter
		}
		t.metrics.ObserveRetry(req.Op)
		t.logger.Warn("retrying request",
			zap.String("op", req.Op),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := sleepContext(ctx, delay); err != nil {
			return nil, nil, ClassifyTransport(req.Op, target, err)
		}
	}
}

func (t *Transport) attempt(ctx context.Context, req Request, target string, payload []byte, streaming bool, attempt int) (*http.Response, func(), error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, nil, ClassifyTransport(req.Op, target, err)
		}
	}
	if t.breaker == nil {
		return t.send(ctx, req, target, payload, streaming, attempt)
	}

	var release func()
	res, err := t.breaker.Execute(func() (interface{}, error) {
		resp, rel, err := t.send(ctx, req, target, payload, streaming, attempt)
		release = rel
		return resp, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, nil, ClassifyTransport(req.Op, target, fmt.Errorf("%w: %w", ErrCircuitOpen, err))
	}
	if err != nil {
		return nil, nil, err
	}
	return res.(*http.Response), release, nil
}

func (t *Transport) send(ctx context.Context, req Request, target string, payload []byte, streaming bool, attempt int) (*http.Response, func(), error) {
	client := t.client
	release := func() {}
	var headerTimer *time.Timer
	if streaming {
		client = t.stream
		sctx, cancel := context.WithCancel(ctx)
		ctx, release = sctx, cancel
		if t.timeout > 0 {
			headerTimer = time.AfterFunc(t.timeout, cancel)
		}
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("build %s request: %w", req.Op, err)
	}
	httpReq.Header = t.headers.Clone()
	if req.Accept != "" {
		httpReq.Header.Set("Accept", req.Accept)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set(HeaderRequestID, requestID)

	t.logger.Debug("sending request",
		zap.String("op", req.Op),
		zap.String("method", req.Method),
		zap.String("url", target),
		zap.String("request_id", requestID),
		zap.Int("attempt", attempt),
	)

	resp, err := client.Do(httpReq)
	if headerTimer != nil && !headerTimer.Stop() && err == nil {
		closeBody(resp.Body)
		release()
		return nil, nil, ClassifyTransport(req.Op, target, context.DeadlineExceeded)
	}
	if err != nil {
		release()
		return nil, nil, ClassifyTransport(req.Op, target, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		cerr := ClassifyResponse(resp)
		release()
		t.logger.Debug("request failed",
			zap.String("op", req.Op),
			zap.String("request_id", requestID),
			zap.Int("status", resp.StatusCode),
			zap.Error(cerr),
		)
		return nil, nil, cerr
	}
	return resp, release, nil
}

func newBreaker(s BreakerSettings, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= s.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// Only an unreachable or failing server counts against the breaker;
		// 4xx answers mean the server is healthy.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var te *TransportError
			if errors.As(err, &te) {
				return false
			}
			var se *ServerError
			if errors.As(err, &se) {
				return se.StatusCode < 500
			}
			return true
		},
	})
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.RandomizationFactor = 0.25
	return b
}

func encodeJSON(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
