package sharepoint

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gitlab.com/tozd/go/errors"
)

// Substrings that identify throttling when the error is not typed
var rateLimitMarkers = []string{
	"http 429",
	"status 429",
	"too many requests",
	"throttl",
	"server too busy",
	"http 503",
	"status 503",
	"service unavailable",
	"activitylimitreached",
}

// RateLimitError is returned when the service throttles a request
type RateLimitError struct {
	StatusCode int
	RetryAfter time.Duration
	URL        string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("sharepoint throttled request (HTTP %d, retry after %s): %s", e.StatusCode, e.RetryAfter, e.URL)
	}
	return fmt.Sprintf("sharepoint throttled request (HTTP %d): %s", e.StatusCode, e.URL)
}

// StatusError is a non-success HTTP response
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("sharepoint request failed (HTTP %d): %s", e.StatusCode, e.URL)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Permanent reports whether retrying the request cannot succeed
func (e *StatusError) Permanent() bool {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	default:
		return false
	}
}

// IsRateLimited reports whether err signals throttling
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return true
	}
	// Typed statuses carry the URL and body, which may contain anything
	var se *StatusError
	if errors.As(err, &se) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// IsPermanent reports whether err is an HTTP failure that retries cannot fix
func IsPermanent(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Permanent()
}

// IsNotFound reports whether err is an HTTP 404
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}
