package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v62/github"
	"github.com/naka-gawa/team-pulse/internal/domain"
	"github.com/naka-gawa/team-pulse/internal/retry"
	"github.com/shurcooL/githubv4"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Defaults for Options fields left at zero.
const (
	DefaultPerPage       = 100
	DefaultMaxPages      = 10
	DefaultCourtesyEvery = 20
	DefaultCourtesyDelay = time.Second
	// maxPatchBytes bounds the per-file patch kept for prompts.
	maxPatchBytes = 2000
)

// Options configures the shared GitHub client used by both backends.
type Options struct {
	Token string
	// HTTPClient overrides the authenticated client built from Token.
	HTTPClient *http.Client
	// RESTBaseURL and GraphQLURL point the clients at a GitHub Enterprise or test server.
	RESTBaseURL string
	GraphQLURL  string

	PerPage           int
	MaxPages          int
	RequestsPerSecond float64
	CourtesyEvery     int
	CourtesyDelay     time.Duration

	Retry  *retry.Policy
	Logger logrus.FieldLogger
}

// NewHTTPClient builds the authenticated HTTP client: oauth2 bearer token over
// a transport that waits out GitHub's secondary rate limits.
func NewHTTPClient(token string) (*http.Client, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}, nil
}

// client holds what both backends share: both API clients over one HTTP
// client, the retry policy and the request pacer.
type client struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	retry         *retry.Policy
	pacer         *pacer
	repos         repoCache
	perPage       int
	maxPages      int
	logger        logrus.FieldLogger
}

func newClient(opts Options) (*client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		if opts.Token == "" {
			return nil, fmt.Errorf("%w: no token configured", ErrAuthentication)
		}
		var err error
		httpClient, err = NewHTTPClient(opts.Token)
		if err != nil {
			return nil, err
		}
	}

	restClient := github.NewClient(httpClient)
	if opts.RESTBaseURL != "" {
		var err error
		restClient, err = restClient.WithEnterpriseURLs(opts.RESTBaseURL, opts.RESTBaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REST base URL: %w", err)
		}
	}
	graphqlClient := githubv4.NewClient(httpClient)
	if opts.GraphQLURL != "" {
		graphqlClient = githubv4.NewEnterpriseClient(opts.GraphQLURL, httpClient)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	policy := opts.Retry
	if policy == nil {
		policy = retry.NewPolicy(retry.DefaultMaxRetries, retry.DefaultBase, logger)
	}
	perPage := opts.PerPage
	if perPage <= 0 || perPage > 100 {
		perPage = DefaultPerPage
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	return &client{
		restClient:    restClient,
		graphqlClient: graphqlClient,
		retry:         policy,
		pacer:         newPacer(opts.RequestsPerSecond, opts.CourtesyEvery, opts.CourtesyDelay),
		perPage:       perPage,
		maxPages:      maxPages,
		logger:        logger,
	}, nil
}

// repoCache keeps one repository listing per (org, since) for the run, so the
// commit and review walks reuse it instead of paginating the organization again.
type repoCache struct {
	group   singleflight.Group
	mu      sync.Mutex
	entries map[string]Listing[domain.Repository]
}

// get returns the cached listing or loads it once, even under concurrent callers.
// Callers receive their own copy of Items.
func (r *repoCache) get(org string, since time.Time, load func() Listing[domain.Repository]) Listing[domain.Repository] {
	key := org + "|" + since.UTC().Format(time.RFC3339Nano)
	r.mu.Lock()
	cached, ok := r.entries[key]
	r.mu.Unlock()
	if !ok {
		v, _, _ := r.group.Do(key, func() (interface{}, error) {
			r.mu.Lock()
			if hit, ok := r.entries[key]; ok {
				r.mu.Unlock()
				return hit, nil
			}
			r.mu.Unlock()
			listing := load()
			r.mu.Lock()
			if r.entries == nil {
				r.entries = make(map[string]Listing[domain.Repository])
			}
			r.entries[key] = listing
			r.mu.Unlock()
			return listing, nil
		})
		cached = v.(Listing[domain.Repository])
	}
	return Listing[domain.Repository]{
		Items:     append([]domain.Repository{}, cached.Items...),
		Truncated: cached.Truncated,
	}
}

// pacer spaces out requests with a token bucket and inserts a fixed courtesy
// pause after every N repository checks.
type pacer struct {
	limiter       *rate.Limiter
	courtesyEvery int64
	courtesyDelay time.Duration
	checked       atomic.Int64
	seen          sync.Map
	sleep         func(ctx context.Context, d time.Duration) error
}

func newPacer(requestsPerSecond float64, every int, delay time.Duration) *pacer {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	if every < 0 {
		every = 0
	}
	return &pacer{
		limiter:       rate.NewLimiter(limit, 1),
		courtesyEvery: int64(every),
		courtesyDelay: delay,
		sleep:         sleepContext,
	}
}

func (p *pacer) wait(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}
	return nil
}

// repoChecked counts the first check of each repository and pauses on every Nth.
// Walking the same repository again later in the run is not counted.
func (p *pacer) repoChecked(ctx context.Context, repo string) error {
	if _, again := p.seen.LoadOrStore(repo, struct{}{}); again {
		return nil
	}
	n := p.checked.Add(1)
	if p.courtesyEvery == 0 || p.courtesyDelay <= 0 || n%p.courtesyEvery != 0 {
		return nil
	}
	return p.sleep(ctx, p.courtesyDelay)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// call runs one paced remote call under the retry policy.
func call[T any](ctx context.Context, c *client, op string, fn func(context.Context) (T, error)) (T, error) {
	return retry.Do(ctx, c.retry, op, func(ctx context.Context) (T, error) {
		if err := c.pacer.wait(ctx); err != nil {
			var zero T
			return zero, err
		}
		return fn(ctx)
	})
}

// restPage is one page of a REST listing.
type restPage[T any] struct {
	items []T
	next  int
}

// paginateREST follows NextPage until the listing ends, visit returns false,
// or the page ceiling is hit. It reports whether the ceiling truncated the listing.
func paginateREST[T any](ctx context.Context, c *client, op string,
	fetch func(ctx context.Context, page int) ([]T, *github.Response, error),
	visit func(T) bool,
) (bool, error) {
	page := 0
	for pages := 0; ; pages++ {
		if pages == c.maxPages {
			c.logger.WithField("op", op).Warnf("page ceiling of %d reached; results are incomplete", c.maxPages)
			return true, nil
		}
		res, err := call(ctx, c, op, func(ctx context.Context) (restPage[T], error) {
			items, resp, err := fetch(ctx, page)
			if err != nil {
				return restPage[T]{}, err
			}
			return restPage[T]{items: items, next: resp.NextPage}, nil
		})
		if err != nil {
			return false, err
		}
		for _, item := range res.items {
			if !visit(item) {
				return false, nil
			}
		}
		if res.next == 0 {
			return false, nil
		}
		page = res.next
		c.logger.WithField("op", op).Debug("fetching next page")
	}
}

// pageInfo is the GraphQL connection cursor block.
type pageInfo struct {
	HasNextPage bool
	EndCursor   githubv4.String
}

// paginateGraphQL runs query once per page, passing the cursor, until the
// connection reports no further pages or the page ceiling is hit.
func paginateGraphQL(ctx context.Context, c *client, op string,
	query func(ctx context.Context, cursor *githubv4.String) (pageInfo, error),
) (bool, error) {
	var cursor *githubv4.String
	for pages := 0; ; pages++ {
		if pages == c.maxPages {
			c.logger.WithField("op", op).Warnf("page ceiling of %d reached; results are incomplete", c.maxPages)
			return true, nil
		}
		info, err := call(ctx, c, op, func(ctx context.Context) (pageInfo, error) {
			return query(ctx, cursor)
		})
		if err != nil {
			return false, err
		}
		if !info.HasNextPage {
			return false, nil
		}
		cursor = githubv4.NewString(info.EndCursor)
		c.logger.WithField("op", op).Debug("fetching next page")
	}
}

// FetchCommitDetail is served by the REST API for both backends, since the
// GraphQL API exposes no patches.
func (c *client) FetchCommitDetail(ctx context.Context, repo, sha string) (domain.CommitDetail, bool) {
	owner, name, ok := domain.SplitFullName(repo)
	if !ok || sha == "" {
		return domain.CommitDetail{}, false
	}
	rc, err := call(ctx, c, "get commit "+repo+"@"+shortSHA(sha), func(ctx context.Context) (*github.RepositoryCommit, error) {
		rc, _, err := c.restClient.Repositories.GetCommit(ctx, owner, name, sha, &github.ListOptions{PerPage: c.perPage})
		return rc, err
	})
	if err != nil {
		c.logger.WithFields(logrus.Fields{"repo": repo, "sha": sha}).WithError(err).Warn("could not fetch commit detail")
		return domain.CommitDetail{}, false
	}

	detail := domain.CommitDetail{
		Additions:    rc.GetStats().GetAdditions(),
		Deletions:    rc.GetStats().GetDeletions(),
		ChangedFiles: len(rc.Files),
		Files:        make([]domain.FilePatch, 0, len(rc.Files)),
	}
	for _, f := range rc.Files {
		detail.Files = append(detail.Files, domain.FilePatch{
			Filename:  f.GetFilename(),
			Additions: f.GetAdditions(),
			Deletions: f.GetDeletions(),
			Patch:     truncate(f.GetPatch(), maxPatchBytes),
		})
	}
	return detail, true
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := strings.LastIndex(s[:n], "\n")
	if cut <= 0 {
		cut = n
	}
	return s[:cut] + "\n..."
}
