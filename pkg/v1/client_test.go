package v1

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func setupClientTest(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	base := []Option{
		WithBaseURL(srv.URL),
		WithTimeout(5 * time.Second),
		WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	}
	client, err := New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(WithBaseURL("localhost:3001"))

	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "base_url", ce.Field)

	_, err = New(WithMaxRetries(-1))
	assert.True(t, errors.As(err, &ce))
}

func TestNewDefaults(t *testing.T) {
	client, err := New()
	require.NoError(t, err)
	defer client.Close()

	cfg := DefaultConfig()
	assert.Equal(t, "http://localhost:3001", cfg.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.MaxRetries)
}

func TestClientStoreAndGet(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/memory", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"id":"m1","content":"hello","metadata":{},"tags":[],"timestamp":1}`)
	})
	mux.HandleFunc("GET /api/v1/memory/proj/m1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":"m1","content":"hello","metadata":{},"tags":[],"timestamp":1}`)
	})
	client := setupClientTest(t, mux, WithAPIKey("token"))

	ctx := context.Background()
	mem, err := client.Store(ctx, MemoryRequest{Project: "proj", Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "m1", mem.ID)

	got, err := client.Get(ctx, "proj", "m1")
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Content)
}

func TestClientGetNotFound(t *testing.T) {
	client := setupClientTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"memory not found"}`)
	}))

	_, err := client.Get(context.Background(), "proj", "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	var se *ServerError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "memory not found", se.Message)
}

func TestClientAuthenticationError(t *testing.T) {
	client := setupClientTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"who are you"}`)
	}))

	_, err := client.Health(context.Background())
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestClientStreamSearch(t *testing.T) {
	client := setupClientTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = io.WriteString(w, strings.Join([]string{
			`{"id":"a","content":"x","score":0.9}`,
			`{broken`,
			`{"id":"b","content":"y","score":0.8}`,
			"",
		}, "\n"))
	}))

	stream, err := client.StreamSearch(context.Background(), VectorQuery{Project: "proj", Query: "q"})
	require.NoError(t, err)

	var ids []string
	var lines []int
	for mem, err := range stream.All() {
		var de *DecodeError
		if errors.As(err, &de) {
			lines = append(lines, de.Line)
			continue
		}
		require.NoError(t, err)
		ids = append(ids, mem.ID)
	}
	assert.Equal(t, []string{"a", "b"}, ids)
	assert.Equal(t, []int{2}, lines)

	for _, err := range stream.All() {
		assert.ErrorIs(t, err, ErrStreamConsumed)
	}
}

func TestClientConcurrentUse(t *testing.T) {
	var calls atomic.Int32
	client := setupClientTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `{"projects":["a"]}`)
	}))

	done := make(chan error, 8)
	for range 8 {
		go func() {
			_, err := client.ListProjects(context.Background())
			done <- err
		}()
	}
	for range 8 {
		assert.NoError(t, <-done)
	}
	assert.Equal(t, int32(8), calls.Load())
}

func TestClientWithMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	client := setupClientTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"healthy","version":"1","uptime":1,"memory_usage":{}}`)
	}), WithMetrics(reg, "ucp"))

	_, err := client.Health(context.Background())
	require.NoError(t, err)

	n, err := testutil.GatherAndCount(reg, "ucp_client_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestClientRateLimitRetry(t *testing.T) {
	var calls atomic.Int32
	client := setupClientTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}), WithMaxRetries(1))

	require.NoError(t, client.Delete(context.Background(), "proj", "m1"))
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientFullyConfigured(t *testing.T) {
	var traced atomic.Bool
	client := setupClientTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traced.Store(r.Header.Get("X-Request-ID") != "")
		_, _ = io.WriteString(w, `{"id":"a"}`+"\n"+`{"id":"`+strings.Repeat("x", 100)+`"}`+"\n"+`{"id":"c"}`+"\n")
	}),
		WithTracerProvider(noop.NewTracerProvider()),
		WithCircuitBreaker(DefaultBreakerSettings()),
		WithRateLimit(100, 10),
		WithUserAgent("ucp-test"),
		WithStreamLimits(16, 32),
	)

	stream, err := client.StreamSearch(context.Background(), VectorQuery{Project: "proj", Query: "q"})
	require.NoError(t, err)

	var ids []string
	var tooLong int
	for mem, err := range stream.All() {
		if errors.Is(err, ErrLineTooLong) {
			tooLong++
			continue
		}
		require.NoError(t, err)
		ids = append(ids, mem.ID)
	}
	assert.Equal(t, []string{"a", "c"}, ids)
	assert.Equal(t, 1, tooLong)
	assert.True(t, traced.Load())
}
