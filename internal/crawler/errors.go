package crawler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// ErrorKind classifies fetch-path failures. The kind, not the underlying
// error type, decides whether an attempt is retried.
type ErrorKind string

// Error kinds.
const (
	// KindRobotsLoad marks a failed robots.txt retrieval. Never fatal to a
	// run; the cache degrades to its default policy instead.
	KindRobotsLoad ErrorKind = "robots_load"
	// KindBlocked marks a URL disallowed by robots policy. Terminal, and
	// not counted as an error.
	KindBlocked ErrorKind = "blocked"
	// KindRateLimited marks an HTTP 429. Retried after the server-specified
	// Retry-After delay.
	KindRateLimited ErrorKind = "rate_limited"
	// KindTransient marks timeouts, connection failures, and 5xx responses.
	// Retried with exponential backoff.
	KindTransient ErrorKind = "transient"
	// KindPermanent marks 4xx responses other than 429 and malformed
	// replies. Not retried.
	KindPermanent ErrorKind = "permanent"
	// KindRender marks a headless-browser failure. Retried like a
	// transient error.
	KindRender ErrorKind = "render"
)

// Retryable reports whether another attempt may succeed.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindRateLimited, KindTransient, KindRender:
		return true
	default:
		return false
	}
}

// FetchError wraps a fetch failure with its classification. RetryAfter is
// set only for KindRateLimited when the server supplied a usable value.
type FetchError struct {
	Kind       ErrorKind
	URL        string
	RetryAfter time.Duration
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func newFetchError(kind ErrorKind, url string, err error) *FetchError {
	return &FetchError{Kind: kind, URL: url, Err: err}
}

// KindOf extracts the classification from err, classifying bare transport
// errors on the fly. Attempt timeouts are transient; cancellation of the
// run context is permanent because retrying a dead context cannot help.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTransient
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindPermanent
	}
	if errors.As(err, &netErr) {
		return KindTransient
	}
	return KindPermanent
}

// classifyStatus maps an HTTP status code to an error kind, or "" when the
// status is not a failure.
func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500:
		return KindTransient
	case status >= 400:
		return KindPermanent
	default:
		return ""
	}
}
