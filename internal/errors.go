package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrAuthentication  = errors.New("authentication failed")
	ErrNotFound        = errors.New("memory not found")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrStreamConsumed  = errors.New("stream already consumed")
	ErrCircuitOpen     = errors.New("circuit breaker open")
	ErrLineTooLong     = errors.New("stream line exceeds maximum length")
	ErrInvalidEncoding = errors.New("invalid UTF-8 in response")
)

// TransportError reports a request that never produced a response, or a
// response body that failed mid-read.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: transport failure: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError reports malformed text or JSON in a response body. Line is the
// 1-based line number within a stream, or 0 for a whole body.
type DecodeError struct {
	Line int
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("decode line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("decode response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ServerError is a non-2xx response other than 401 and 429. Message is the
// server's own message when the body was a structured error, otherwise the raw
// body text.
type ServerError struct {
	StatusCode int
	Message    string
	Code       string
	Details    map[string]json.RawMessage
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: %s", e.Message)
}

// Is lets a 404 match ErrNotFound while remaining a ServerError.
func (e *ServerError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// RateLimitError is returned for HTTP 429. RetryAfter is zero when the server
// did not send a usable Retry-After header.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limit exceeded (retry after %s)", e.RetryAfter)
	}
	return "rate limit exceeded"
}

type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// IsRetryable reports whether err is a transient failure worth another attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return true
	}
	var te *TransportError
	if !errors.As(err, &te) {
		return false
	}
	return !errors.Is(te.Err, ErrCircuitOpen)
}
