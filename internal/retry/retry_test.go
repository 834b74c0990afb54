package retry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/naka-gawa/team-pulse/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

// newTestPolicy returns a policy that records sleeps instead of sleeping.
func newTestPolicy(maxRetries int) (*Policy, *[]time.Duration) {
	var slept []time.Duration
	p := NewPolicy(maxRetries, 2, logging.Discard())
	p.Sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	p.Jitter = func() float64 { return 0.5 }
	return p, &slept
}

func githubResponse(status int) *http.Response {
	return &http.Response{
		StatusCode: status,
		Request:    &http.Request{Method: http.MethodGet, URL: &url.URL{Scheme: "https", Host: "api.github.com", Path: "/orgs/acme/members"}},
	}
}

func TestClassify(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected Class
	}{
		{name: "nil", err: nil, expected: Terminal},
		{name: "primary rate limit", err: &github.RateLimitError{Response: githubResponse(http.StatusForbidden), Message: "API rate limit exceeded"}, expected: RateLimited},
		{name: "secondary rate limit", err: &github.AbuseRateLimitError{Response: githubResponse(http.StatusForbidden), Message: "secondary rate limit"}, expected: RateLimited},
		{name: "429 response", err: &github.ErrorResponse{Response: githubResponse(http.StatusTooManyRequests), Message: "slow down"}, expected: RateLimited},
		{name: "403 with rate limit body", err: &github.ErrorResponse{Response: githubResponse(http.StatusForbidden), Message: "You have exceeded a secondary rate limit"}, expected: RateLimited},
		{name: "403 permission", err: &github.ErrorResponse{Response: githubResponse(http.StatusForbidden), Message: "Resource not accessible"}, expected: Terminal},
		{name: "502 response", err: &github.ErrorResponse{Response: githubResponse(http.StatusBadGateway), Message: "Bad Gateway"}, expected: Transient},
		{name: "404 response", err: &github.ErrorResponse{Response: githubResponse(http.StatusNotFound), Message: "Not Found"}, expected: Terminal},
		{name: "401 response", err: &github.ErrorResponse{Response: githubResponse(http.StatusUnauthorized), Message: "Bad credentials"}, expected: Terminal},
		{name: "googleapi 429", err: &googleapi.Error{Code: http.StatusTooManyRequests}, expected: RateLimited},
		{name: "googleapi 503", err: &googleapi.Error{Code: http.StatusServiceUnavailable}, expected: Transient},
		{name: "googleapi 400", err: &googleapi.Error{Code: http.StatusBadRequest}, expected: Terminal},
		{name: "malformed json body", err: fmt.Errorf("decode: %w", &json.SyntaxError{Offset: 1}), expected: Transient},
		{name: "connection failure", err: &url.Error{Op: "Post", URL: "https://api.github.com/graphql", Err: errors.New("connection refused")}, expected: Transient},
		{name: "graphql non-200 5xx", err: errors.New(`non-200 OK status code: 502 Bad Gateway body: ""`), expected: Transient},
		{name: "graphql non-200 401", err: errors.New(`non-200 OK status code: 401 Unauthorized body: "Bad credentials"`), expected: Terminal},
		{name: "graphql rate limit message", err: errors.New("API rate limit exceeded for user ID 1."), expected: RateLimited},
		{name: "context canceled", err: fmt.Errorf("page: %w", context.Canceled), expected: Terminal},
		{name: "unknown", err: errors.New("Could not resolve to an Organization with the login of 'nope'."), expected: Terminal},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Classify(tc.err))
		})
	}
}

func TestPolicy_Delay(t *testing.T) {
	p, _ := newTestPolicy(3)
	assert.Equal(t, 2500*time.Millisecond, p.Delay(1))
	assert.Equal(t, 4500*time.Millisecond, p.Delay(2))
	assert.Equal(t, 8500*time.Millisecond, p.Delay(3))
}

func TestDo_RetryExhaustion(t *testing.T) {
	testCases := []struct {
		name       string
		maxRetries int
	}{
		{name: "default retries", maxRetries: DefaultMaxRetries},
		{name: "single retry", maxRetries: 1},
		{name: "no retries", maxRetries: 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, slept := newTestPolicy(tc.maxRetries)
			calls := 0
			result, err := Do(context.Background(), p, "list members", func(context.Context) ([]string, error) {
				calls++
				return nil, &github.RateLimitError{Response: githubResponse(http.StatusForbidden), Message: "API rate limit exceeded"}
			})

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrExhausted)
			assert.Nil(t, result)
			assert.Equal(t, tc.maxRetries+1, calls)
			assert.Len(t, *slept, tc.maxRetries)
		})
	}
}

func TestValue_ReturnsFallbackWithoutError(t *testing.T) {
	p, _ := newTestPolicy(DefaultMaxRetries)
	calls := 0
	got := Value(context.Background(), p, "count reviews", func(context.Context) (int, error) {
		calls++
		return 0, errors.New("API rate limit exceeded")
	}, -1)

	assert.Equal(t, -1, got)
	assert.Equal(t, DefaultMaxRetries+1, calls)
}

func TestDo_TerminalErrorIsNotRetried(t *testing.T) {
	p, slept := newTestPolicy(DefaultMaxRetries)
	calls := 0
	_, err := Do(context.Background(), p, "get repo", func(context.Context) (string, error) {
		calls++
		return "", &github.ErrorResponse{Response: githubResponse(http.StatusNotFound), Message: "Not Found"}
	})

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *slept)
}

func TestDo_RecoversAfterTransientFailure(t *testing.T) {
	p, slept := newTestPolicy(DefaultMaxRetries)
	calls := 0
	got, err := Do(context.Background(), p, "list commits", func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New(`non-200 OK status code: 503 Service Unavailable body: ""`)
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{2500 * time.Millisecond, 4500 * time.Millisecond}, *slept)
}

func TestDo_StopsWhenSleepIsCanceled(t *testing.T) {
	p, _ := newTestPolicy(DefaultMaxRetries)
	p.Sleep = func(context.Context, time.Duration) error { return context.Canceled }
	calls := 0
	_, err := Do(context.Background(), p, "list repos", func(context.Context) (int, error) {
		calls++
		return 0, errors.New("service unavailable")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
