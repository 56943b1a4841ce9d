package internal

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// maxErrorBody caps how much of a non-2xx body is kept as the error message.
const maxErrorBody = 64 << 10

// ClassifyResponse turns a non-2xx response into one member of the error
// taxonomy. It is the only reader of resp.Body and always closes it.
func ClassifyResponse(resp *http.Response) error {
	defer closeBody(resp.Body)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrAuthentication
	case http.StatusTooManyRequests:
		return &RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return &ServerError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("HTTP %d error", resp.StatusCode),
		}
	}
	return serverErrorFromBody(resp.StatusCode, body)
}

// ClassifyTransport wraps a failure that never produced a response.
func ClassifyTransport(op, url string, err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Op: op, URL: url, Err: err}
}

func serverErrorFromBody(status int, body []byte) error {
	var envelope struct {
		Message *string                    `json:"message"`
		Code    *string                    `json:"code"`
		Details map[string]json.RawMessage `json:"details"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Message == nil {
		return &ServerError{StatusCode: status, Message: string(body)}
	}

	serr := &ServerError{
		StatusCode: status,
		Message:    *envelope.Message,
		Details:    envelope.Details,
	}
	if envelope.Code != nil {
		serr.Code = *envelope.Code
	}
	return serr
}

func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// responseURL reports the absolute target of resp, or fallback when the
// response carries no request.
func responseURL(resp *http.Response, fallback string) string {
	if resp != nil && resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL.String()
	}
	return fallback
}

func closeBody(rc io.ReadCloser) {
	if rc != nil {
		_ = rc.Close()
	}
}
