package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/naka-gawa/team-pulse/internal/logging"
	"github.com/naka-gawa/team-pulse/internal/retry"
	"github.com/shurcooL/githubv4"
	"github.com/stretchr/testify/require"
)

var testSince = time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC)

// setupTestClient creates a client that talks to a mock HTTP server for both APIs.
// GraphQL requests arrive as POST /, REST requests on their usual paths.
func setupTestClient(t *testing.T, handler http.Handler) *client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	restClient := github.NewClient(server.Client())
	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	restClient.BaseURL = baseURL

	graphqlClient := githubv4.NewEnterpriseClient(server.URL, server.Client())
	logger := logging.Discard()

	policy := retry.NewPolicy(2, retry.DefaultBase, logger)
	policy.Sleep = func(context.Context, time.Duration) error { return nil }

	return &client{
		restClient:    restClient,
		graphqlClient: graphqlClient,
		retry:         policy,
		pacer:         newPacer(0, 0, 0),
		perPage:       DefaultPerPage,
		maxPages:      DefaultMaxPages,
		logger:        logger,
	}
}

// graphqlRequest is the body the GraphQL client posts.
type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

func decodeGraphQL(t *testing.T, r *http.Request) graphqlRequest {
	t.Helper()
	body, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var req graphqlRequest
	require.NoError(t, json.Unmarshal(body, &req))
	return req
}

// graphqlRouter answers each request with the first route whose key appears in the query.
type graphqlRouter struct {
	t      *testing.T
	routes []graphqlRoute
}

type graphqlRoute struct {
	contains string
	respond  func(w http.ResponseWriter, req graphqlRequest)
}

func (g *graphqlRouter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := decodeGraphQL(g.t, r)
	for _, route := range g.routes {
		if strings.Contains(req.Query, route.contains) {
			route.respond(w, req)
			return
		}
	}
	g.t.Errorf("unexpected GraphQL query: %s", req.Query)
	w.WriteHeader(http.StatusBadRequest)
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}
