// Package retry wraps remote calls with error classification and exponential backoff.
package retry

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/go-github/v62/github"
	"google.golang.org/api/googleapi"
)

// Class is the retry classification of an error.
type Class int

const (
	// Terminal errors are never retried.
	Terminal Class = iota
	// RateLimited errors carry an explicit rate-limit signal from the backend.
	RateLimited
	// Transient errors are server-side or network failures.
	Transient
)

func (c Class) String() string {
	switch c {
	case RateLimited:
		return "rate_limited"
	case Transient:
		return "transient"
	default:
		return "terminal"
	}
}

// Retryable reports whether errors of this class are worth another attempt.
func (c Class) Retryable() bool {
	return c == RateLimited || c == Transient
}

var (
	rateLimitMarkers = []string{
		"rate limit",
		"rate_limited",
		"secondary rate",
		"abuse detection",
		"resource_exhausted",
		"resource exhausted",
		"quota exceeded",
		"too many requests",
	}
	transientMarkers = []string{
		"bad gateway",
		"service unavailable",
		"gateway timeout",
		"internal server error",
		"connection reset",
		"connection refused",
		"unexpected eof",
		"i/o timeout",
		"invalid character",
		"unavailable",
	}
	// graphql clients report non-200 replies as "non-200 OK status code: 502 Bad Gateway ...".
	statusCodePattern = regexp.MustCompile(`status code: (\d{3})`)
)

// Classify decides whether err is rate limiting, transient or terminal.
func Classify(err error) Class {
	if err == nil {
		return Terminal
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Terminal
	}

	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return RateLimited
	}
	var acceptedErr *github.AcceptedError
	if errors.As(err, &acceptedErr) {
		return Transient
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return classifyStatus(respErr.Response.StatusCode, respErr.Message)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.Code, apiErr.Message)
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return Transient
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return Transient
	}

	return classifyMessage(err.Error())
}

func classifyStatus(code int, message string) Class {
	switch {
	case code == http.StatusTooManyRequests:
		return RateLimited
	case code == http.StatusForbidden && hasMarker(strings.ToLower(message), rateLimitMarkers):
		return RateLimited
	case code >= http.StatusInternalServerError:
		return Transient
	default:
		return Terminal
	}
}

func classifyMessage(message string) Class {
	lower := strings.ToLower(message)
	if hasMarker(lower, rateLimitMarkers) {
		return RateLimited
	}
	if m := statusCodePattern.FindStringSubmatch(lower); m != nil {
		switch {
		case m[1] == "429":
			return RateLimited
		case strings.HasPrefix(m[1], "5"):
			return Transient
		default:
			return Terminal
		}
	}
	if hasMarker(lower, transientMarkers) {
		return Transient
	}
	return Terminal
}

func hasMarker(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
