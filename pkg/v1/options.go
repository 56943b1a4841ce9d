package v1

import (
	"net/http"
	"time"

	"github.com/4thel00z/ucp/internal"
	"github.com/cenkalti/backoff/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	conn           internal.ClientConfig
	httpClient     *http.Client
	logger         *zap.Logger
	limiter        *rate.Limiter
	breaker        *internal.BreakerSettings
	registerer     prometheus.Registerer
	namespace      string
	tracerProvider trace.TracerProvider
	newBackOff     func() backoff.BackOff
	decode         internal.DecodeOptions
}

// WithConfig replaces the whole connection configuration.
func WithConfig(cfg Config) Option {
	return func(c *clientConfig) {
		c.conn = cfg
	}
}

// WithBaseURL sets the server base URL, e.g. http://localhost:3001.
func WithBaseURL(baseURL string) Option {
	return func(c *clientConfig) {
		c.conn.BaseURL = baseURL
	}
}

// WithAPIKey sets the bearer credential sent on every request.
func WithAPIKey(key string) Option {
	return func(c *clientConfig) {
		c.conn.APIKey = key
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.conn.Timeout = d
	}
}

// WithMaxRetries sets how many times a transient failure is retried. Zero
// disables retries.
func WithMaxRetries(n int) Option {
	return func(c *clientConfig) {
		c.conn.MaxRetries = n
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *clientConfig) {
		c.conn.UserAgent = ua
	}
}

// WithHTTPClient uses h as the base HTTP client. Its Timeout is replaced by
// the configured timeout.
func WithHTTPClient(h *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = h
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}

// WithRateLimit caps outgoing attempts to rps per second with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *clientConfig) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithCircuitBreaker enables a circuit breaker that opens after repeated
// transport failures or 5xx responses.
func WithCircuitBreaker(settings BreakerSettings) Option {
	return func(c *clientConfig) {
		c.breaker = &settings
	}
}

// WithMetrics registers Prometheus collectors on reg under namespace.
func WithMetrics(reg prometheus.Registerer, namespace string) Option {
	return func(c *clientConfig) {
		c.registerer = reg
		c.namespace = namespace
	}
}

// WithTracerProvider instruments outgoing requests with OpenTelemetry.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *clientConfig) {
		c.tracerProvider = tp
	}
}

// WithBackOff overrides the retry delay schedule.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *clientConfig) {
		c.newBackOff = newBackOff
	}
}

// WithStreamLimits tunes the streaming decoder: the read chunk size and the
// longest line accepted before it is reported and skipped.
func WithStreamLimits(chunkSize, maxLineBytes int) Option {
	return func(c *clientConfig) {
		c.decode = internal.DecodeOptions{ChunkSize: chunkSize, MaxLineBytes: maxLineBytes}
	}
}
