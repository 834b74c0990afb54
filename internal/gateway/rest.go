package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/naka-gawa/team-pulse/internal/domain"
	"github.com/sirupsen/logrus"
)

// RESTGateway fetches activity through the paginated REST API.
// Commit listings carry no line counts; those come from FetchCommitDetail.
type RESTGateway struct {
	*client
}

func (g *RESTGateway) Name() string { return BackendREST }

// Authenticate resolves the token's login. Any failure is fatal for the run.
func (g *RESTGateway) Authenticate(ctx context.Context) (string, error) {
	user, err := call(ctx, g.client, "get authenticated user", func(ctx context.Context) (*github.User, error) {
		user, _, err := g.restClient.Users.Get(ctx, "")
		return user, err
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	return user.GetLogin(), nil
}

func (g *RESTGateway) ListMembers(ctx context.Context, org string) Listing[string] {
	log := g.logger.WithFields(logrus.Fields{"org": org, "backend": BackendREST})
	log.Debug("fetching organization members")
	out := emptyListing[string]()
	opts := &github.ListMembersOptions{ListOptions: github.ListOptions{PerPage: g.perPage}}
	truncated, err := paginateREST(ctx, g.client, "list members of "+org,
		func(ctx context.Context, page int) ([]*github.User, *github.Response, error) {
			opts.Page = page
			return g.restClient.Organizations.ListMembers(ctx, org, opts)
		},
		func(u *github.User) bool {
			if login := u.GetLogin(); login != "" {
				out.Items = append(out.Items, login)
			}
			return true
		})
	if err != nil {
		log.WithError(err).Warn("could not list members; continuing without them")
	}
	out.Truncated = truncated
	return out
}

func (g *RESTGateway) ListActiveRepositories(ctx context.Context, org string, since time.Time) Listing[domain.Repository] {
	out := g.activeRepositories(ctx, org, since)
	for i := range out.Items {
		repo := &out.Items[i]
		langs, err := call(ctx, g.client, "list languages of "+repo.FullName(), func(ctx context.Context) (map[string]int, error) {
			langs, _, err := g.restClient.Repositories.ListLanguages(ctx, repo.Owner, repo.Name)
			return langs, err
		})
		if err != nil {
			g.logger.WithField("repo", repo.FullName()).WithError(err).Debug("could not list languages")
			continue
		}
		repo.Languages = langs
	}
	return out
}

// activeRepositories lists repositories pushed or updated at/after since, without
// languages. The listing is fetched once per org and cutoff.
func (g *RESTGateway) activeRepositories(ctx context.Context, org string, since time.Time) Listing[domain.Repository] {
	return g.repos.get(org, since, func() Listing[domain.Repository] {
		return g.listRepositories(ctx, org, since)
	})
}

func (g *RESTGateway) listRepositories(ctx context.Context, org string, since time.Time) Listing[domain.Repository] {
	log := g.logger.WithFields(logrus.Fields{"org": org, "backend": BackendREST})
	out := emptyListing[domain.Repository]()
	opts := &github.RepositoryListByOrgOptions{
		Type:        "all",
		Sort:        "pushed",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: g.perPage},
	}
	truncated, err := paginateREST(ctx, g.client, "list repositories of "+org,
		func(ctx context.Context, page int) ([]*github.Repository, *github.Response, error) {
			opts.Page = page
			return g.restClient.Repositories.ListByOrg(ctx, org, opts)
		},
		func(r *github.Repository) bool {
			pushed, updated := r.GetPushedAt().Time, r.GetUpdatedAt().Time
			if pushed.Before(since) && updated.Before(since) {
				return true
			}
			out.Items = append(out.Items, domain.Repository{
				Owner:         r.GetOwner().GetLogin(),
				Name:          r.GetName(),
				DefaultBranch: r.GetDefaultBranch(),
				Languages:     map[string]int{},
				Stars:         r.GetStargazersCount(),
				Forks:         r.GetForksCount(),
				PushedAt:      pushed,
			})
			return true
		})
	if err != nil {
		log.WithError(err).Warn("could not list repositories")
	}
	for i := range out.Items {
		if out.Items[i].Owner == "" {
			out.Items[i].Owner = org
		}
	}
	out.Truncated = truncated
	return out
}

func (g *RESTGateway) FetchCommits(ctx context.Context, org string, since time.Time) Listing[domain.Commit] {
	log := g.logger.WithFields(logrus.Fields{"org": org, "backend": BackendREST})
	log.Debug("fetching commits on all branches")
	repos := g.activeRepositories(ctx, org, since)
	out := Listing[domain.Commit]{Items: []domain.Commit{}, Truncated: repos.Truncated}

	for _, repo := range repos.Items {
		if err := g.pacer.repoChecked(ctx, repo.FullName()); err != nil {
			log.WithError(err).Warn("stopping commit collection")
			return out
		}
		branches, truncated := g.listBranches(ctx, repo)
		out.Truncated = out.Truncated || truncated
		for _, branch := range branches {
			commits, truncated := g.listBranchCommits(ctx, repo, branch, since)
			out.Items = append(out.Items, commits...)
			out.Truncated = out.Truncated || truncated
		}
	}
	log.Debugf("collected %d branch commit records", len(out.Items))
	return out
}

func (g *RESTGateway) listBranches(ctx context.Context, repo domain.Repository) ([]string, bool) {
	var branches []string
	opts := &github.BranchListOptions{ListOptions: github.ListOptions{PerPage: g.perPage}}
	truncated, err := paginateREST(ctx, g.client, "list branches of "+repo.FullName(),
		func(ctx context.Context, page int) ([]*github.Branch, *github.Response, error) {
			opts.Page = page
			return g.restClient.Repositories.ListBranches(ctx, repo.Owner, repo.Name, opts)
		},
		func(b *github.Branch) bool {
			branches = append(branches, b.GetName())
			return true
		})
	if err != nil {
		g.logger.WithField("repo", repo.FullName()).WithError(err).Warn("could not list branches")
	}
	if len(branches) == 0 && repo.DefaultBranch != "" && err != nil {
		branches = []string{repo.DefaultBranch}
	}
	return branches, truncated
}

func (g *RESTGateway) listBranchCommits(ctx context.Context, repo domain.Repository, branch string, since time.Time) ([]domain.Commit, bool) {
	var commits []domain.Commit
	opts := &github.CommitsListOptions{
		SHA:         branch,
		Since:       since,
		ListOptions: github.ListOptions{PerPage: g.perPage},
	}
	truncated, err := paginateREST(ctx, g.client, "list commits of "+repo.FullName()+"@"+branch,
		func(ctx context.Context, page int) ([]*github.RepositoryCommit, *github.Response, error) {
			opts.Page = page
			return g.restClient.Repositories.ListCommits(ctx, repo.Owner, repo.Name, opts)
		},
		func(rc *github.RepositoryCommit) bool {
			commits = append(commits, commitFromREST(repo.FullName(), branch, rc))
			return true
		})
	if err != nil {
		var respErr *github.ErrorResponse
		// An empty repository answers 409 Conflict.
		if errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode == http.StatusConflict {
			return commits, truncated
		}
		g.logger.WithFields(logrus.Fields{"repo": repo.FullName(), "branch": branch}).WithError(err).Warn("could not list commits")
	}
	return commits, truncated
}

func commitFromREST(repo, branch string, rc *github.RepositoryCommit) domain.Commit {
	author := rc.GetCommit().GetAuthor()
	c := domain.Commit{
		Repository: repo,
		Branches:   []string{branch},
		SHA:        rc.GetSHA(),
		Author: domain.Author{
			Login: rc.GetAuthor().GetLogin(),
			Name:  author.GetName(),
			Email: author.GetEmail(),
		},
		AuthoredAt: author.GetDate().Time,
		Message:    rc.GetCommit().GetMessage(),
	}
	if rc.Stats != nil {
		c.Additions = rc.Stats.GetAdditions()
		c.Deletions = rc.Stats.GetDeletions()
		c.ChangedFiles = len(rc.Files)
		c.HasStats = true
	}
	return c
}

// FetchReviews walks pull requests by most recent update and stops at the first
// one last updated before since; a review at/after since always bumps its PR.
func (g *RESTGateway) FetchReviews(ctx context.Context, org string, since time.Time) Listing[domain.ReviewRecord] {
	log := g.logger.WithFields(logrus.Fields{"org": org, "backend": BackendREST})
	log.Debug("fetching pull request reviews")
	repos := g.activeRepositories(ctx, org, since)
	out := Listing[domain.ReviewRecord]{Items: []domain.ReviewRecord{}, Truncated: repos.Truncated}

	for _, repo := range repos.Items {
		if err := g.pacer.repoChecked(ctx, repo.FullName()); err != nil {
			log.WithError(err).Warn("stopping review collection")
			return out
		}
		var numbers []int
		opts := &github.PullRequestListOptions{
			State:       "all",
			Sort:        "updated",
			Direction:   "desc",
			ListOptions: github.ListOptions{PerPage: g.perPage},
		}
		truncated, err := paginateREST(ctx, g.client, "list pull requests of "+repo.FullName(),
			func(ctx context.Context, page int) ([]*github.PullRequest, *github.Response, error) {
				opts.Page = page
				return g.restClient.PullRequests.List(ctx, repo.Owner, repo.Name, opts)
			},
			func(pr *github.PullRequest) bool {
				if pr.GetUpdatedAt().Time.Before(since) {
					return false
				}
				numbers = append(numbers, pr.GetNumber())
				return true
			})
		if err != nil {
			log.WithField("repo", repo.FullName()).WithError(err).Warn("could not list pull requests")
		}
		out.Truncated = out.Truncated || truncated

		for _, number := range numbers {
			reviews, truncated := g.listReviews(ctx, repo, number)
			out.Items = append(out.Items, reviews...)
			out.Truncated = out.Truncated || truncated
		}
	}
	return out
}

func (g *RESTGateway) listReviews(ctx context.Context, repo domain.Repository, number int) ([]domain.ReviewRecord, bool) {
	var reviews []domain.ReviewRecord
	opts := &github.ListOptions{PerPage: g.perPage}
	truncated, err := paginateREST(ctx, g.client, fmt.Sprintf("list reviews of %s#%d", repo.FullName(), number),
		func(ctx context.Context, page int) ([]*github.PullRequestReview, *github.Response, error) {
			opts.Page = page
			return g.restClient.PullRequests.ListReviews(ctx, repo.Owner, repo.Name, number, opts)
		},
		func(r *github.PullRequestReview) bool {
			reviews = append(reviews, domain.ReviewRecord{
				Repository:  repo.FullName(),
				PullRequest: number,
				Reviewer:    r.GetUser().GetLogin(),
				SubmittedAt: r.GetSubmittedAt().Time,
				State:       r.GetState(),
			})
			return true
		})
	if err != nil {
		g.logger.WithField("repo", repo.FullName()).WithError(err).Warn("could not list reviews")
	}
	return reviews, truncated
}
