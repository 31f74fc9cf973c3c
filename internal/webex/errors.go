package webex

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrRetriesExhausted is returned when a request keeps being throttled past
// the session's retry budget. Use errors.Is to detect it; the wrapped error
// carries the last rate-limit signal.
var ErrRetriesExhausted = errors.New("retry budget exhausted")

// RateLimitError is the throttling signal from a 429 response: the offending
// URL and how long the server asked us to wait.
type RateLimitError struct {
	URL        string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited at %s, retry after %s", e.URL, e.RetryAfter)
}

// StatusError is a non-retryable HTTP error response. Message and TrackingID
// are filled from the Webex error body when present.
type StatusError struct {
	Status     int
	URL        string
	Message    string
	TrackingID string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP %d from %s: %s", e.Status, e.URL, e.Message)
	}
	return fmt.Sprintf("HTTP %d from %s", e.Status, e.URL)
}

// newStatusError builds a StatusError, extracting message and trackingId from
// the Webex JSON error envelope if the body parses.
func newStatusError(status int, url string, body []byte) *StatusError {
	e := &StatusError{Status: status, URL: url}
	var payload struct {
		Message    string `json:"message"`
		TrackingID string `json:"trackingId"`
	}
	if json.Unmarshal(body, &payload) == nil {
		e.Message = payload.Message
		e.TrackingID = payload.TrackingID
	}
	return e
}
