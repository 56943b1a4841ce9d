package internal

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the client's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	retries     *prometheus.CounterVec
	streamItems *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "client_requests_total",
				Help:      "Total number of request attempts by operation and outcome",
			},
			[]string{"op", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "client_request_duration_seconds",
				Help:      "Request attempt duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "client_retries_total",
				Help:      "Total number of retried attempts by operation",
			},
			[]string{"op"},
		),
		streamItems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "client_stream_items_total",
				Help:      "Items produced by streaming search, by kind",
			},
			[]string{"kind"},
		),
	}

	for _, c := range []prometheus.Collector{m.requests, m.duration, m.retries, m.streamItems} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) ObserveRequest(op string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(op, ErrorKind(err)).Inc()
	m.duration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) ObserveRetry(op string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(op).Inc()
}

func (m *Metrics) ObserveStreamItem(err error) {
	if m == nil {
		return
	}
	kind := "record"
	if err != nil {
		kind = ErrorKind(err)
	}
	m.streamItems.WithLabelValues(kind).Inc()
}

// ErrorKind names the taxonomy member of err, or "ok" for nil.
func ErrorKind(err error) string {
	var (
		te *TransportError
		de *DecodeError
		se *ServerError
		rl *RateLimitError
		ce *ConfigError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAuthentication):
		return "auth"
	case errors.As(err, &rl):
		return "rate_limit"
	case errors.As(err, &te):
		return "transport"
	case errors.As(err, &de):
		return "decode"
	case errors.As(err, &se):
		return "server"
	case errors.As(err, &ce):
		return "config"
	default:
		return "other"
	}
}
