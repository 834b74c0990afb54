// Package gateway provides the GitHub activity backends, abstracting away the
// underlying REST and GraphQL clients behind one Fetcher contract.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/naka-gawa/team-pulse/internal/domain"
)

// Backend names accepted in configuration.
const (
	BackendREST    = "rest"
	BackendGraphQL = "graphql"
)

// ErrAuthentication marks a client setup failure that no retry can fix.
var ErrAuthentication = errors.New("github authentication failed")

// Listing is a normalized listing. Items is never nil; Truncated is set when a
// page ceiling cut the listing short.
type Listing[T any] struct {
	Items     []T
	Truncated bool
}

func emptyListing[T any]() Listing[T] {
	return Listing[T]{Items: []T{}}
}

// Fetcher defines the behavior of a backend for fetching activity from GitHub.
// Every method takes the organization and cutoff explicitly. Apart from
// Authenticate, no method returns a remote error: after retries are exhausted
// the failure is logged and whatever was collected so far is returned.
type Fetcher interface {
	Name() string
	Authenticate(ctx context.Context) (string, error)
	ListMembers(ctx context.Context, org string) Listing[string]
	ListActiveRepositories(ctx context.Context, org string, since time.Time) Listing[domain.Repository]
	// FetchCommits returns one record per (branch, commit) observed on any branch.
	FetchCommits(ctx context.Context, org string, since time.Time) Listing[domain.Commit]
	FetchReviews(ctx context.Context, org string, since time.Time) Listing[domain.ReviewRecord]
	FetchCommitDetail(ctx context.Context, repo, sha string) (domain.CommitDetail, bool)
}

// New returns the Fetcher for the named backend.
func New(backend string, opts Options) (Fetcher, error) {
	c, err := newClient(opts)
	if err != nil {
		return nil, err
	}
	switch backend {
	case BackendREST:
		return &RESTGateway{client: c}, nil
	case "", BackendGraphQL:
		return &GraphQLGateway{client: c}, nil
	default:
		return nil, fmt.Errorf("unknown backend %q: must be %s or %s", backend, BackendREST, BackendGraphQL)
	}
}
