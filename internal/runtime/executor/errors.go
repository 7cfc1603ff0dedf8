package executor

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// ErrorKind classifies a failed Web API request.
type ErrorKind string

const (
	KindBadRequest      ErrorKind = "bad_request"
	KindUnauthorized    ErrorKind = "unauthorized"
	KindNotFound        ErrorKind = "not_found"
	KindRateLimited     ErrorKind = "rate_limited"
	KindServerError     ErrorKind = "server_error"
	KindNetworkError    ErrorKind = "network_error"
	KindInvalidResponse ErrorKind = "invalid_response"
)

// StatusError is returned for every request that did not yield a usable response.
type StatusError struct {
	Kind       ErrorKind
	Code       int
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *StatusError) Error() string {
	var b strings.Builder
	b.WriteString("spotify api: ")
	b.WriteString(string(e.Kind))
	if e.Code > 0 {
		fmt.Fprintf(&b, " (status %d)", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *StatusError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status, zero for transport and decode failures.
func (e *StatusError) StatusCode() int { return e.Code }

// classifyStatus maps a non-2xx status to its error kind.
func classifyStatus(code int) ErrorKind {
	switch {
	case code == http.StatusBadRequest:
		return KindBadRequest
	case code == http.StatusUnauthorized:
		return KindUnauthorized
	case code == http.StatusNotFound:
		return KindNotFound
	case code == http.StatusTooManyRequests:
		return KindRateLimited
	case code >= 500:
		return KindServerError
	default:
		return KindNetworkError
	}
}

func newStatusError(resp *http.Response, body []byte, now time.Time) *StatusError {
	err := &StatusError{
		Kind:    classifyStatus(resp.StatusCode),
		Code:    resp.StatusCode,
		Message: errorMessage(body),
	}
	if err.Kind == KindRateLimited {
		err.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), now)
	}
	return err
}

// errorMessage extracts the provider message from {"error":{"status":..,"message":..}}
// or the token endpoint style {"error":"..","error_description":".."}.
func errorMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if msg := gjson.GetBytes(body, "error.message"); msg.Exists() {
		return strings.TrimSpace(msg.String())
	}
	if desc := gjson.GetBytes(body, "error_description"); desc.Exists() {
		return strings.TrimSpace(desc.String())
	}
	if e := gjson.GetBytes(body, "error"); e.Type == gjson.String {
		return strings.TrimSpace(e.String())
	}
	if gjson.ValidBytes(body) {
		return ""
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200] + "..."
	}
	return text
}

func parseRetryAfter(raw string, now time.Time) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(raw); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
