package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/naka-gawa/team-pulse/internal/domain"
	"github.com/shurcooL/githubv4"
	"github.com/sirupsen/logrus"
)

// GraphQLGateway fetches activity through the GraphQL API. History nodes carry
// line counts, so commits arrive with stats.
type GraphQLGateway struct {
	*client
}

func (g *GraphQLGateway) Name() string { return BackendGraphQL }

type viewerQuery struct {
	Viewer struct {
		Login string
	}
}

type membersQuery struct {
	Organization struct {
		MembersWithRole struct {
			PageInfo pageInfo
			Nodes    []struct {
				Login string
			}
		} `graphql:"membersWithRole(first: $perPage, after: $cursor)"`
	} `graphql:"organization(login: $org)"`
}

type repoNode struct {
	Name  string
	Owner struct {
		Login string
	}
	PushedAt         *githubv4.DateTime
	UpdatedAt        githubv4.DateTime
	StargazerCount   int
	ForkCount        int
	DefaultBranchRef *struct {
		Name string
	}
	Languages struct {
		Edges []struct {
			Size int
			Node struct {
				Name string
			}
		}
	} `graphql:"languages(first: 10, orderBy: {field: SIZE, direction: DESC})"`
}

type repositoriesQuery struct {
	Organization struct {
		Repositories struct {
			PageInfo pageInfo
			Nodes    []repoNode
		} `graphql:"repositories(first: $perPage, after: $cursor, orderBy: {field: PUSHED_AT, direction: DESC})"`
	} `graphql:"organization(login: $org)"`
}

type refsQuery struct {
	Repository struct {
		Refs struct {
			PageInfo pageInfo
			Nodes    []struct {
				Name string
			}
		} `graphql:"refs(refPrefix: \"refs/heads/\", first: $perPage, after: $cursor)"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

type historyNode struct {
	Oid                     githubv4.GitObjectID
	Message                 string
	AuthoredDate            githubv4.DateTime
	Additions               int
	Deletions               int
	ChangedFilesIfAvailable *int
	Author                  struct {
		Name  string
		Email string
		User  *struct {
			Login string
		}
	}
}

type historyQuery struct {
	Repository struct {
		Ref *struct {
			Target struct {
				Commit struct {
					History struct {
						PageInfo pageInfo
						Nodes    []historyNode
					} `graphql:"history(first: $perPage, after: $cursor, since: $since)"`
				} `graphql:"... on Commit"`
			}
		} `graphql:"ref(qualifiedName: $ref)"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

type reviewNode struct {
	Author *struct {
		Login string
	}
	SubmittedAt *githubv4.DateTime
	State       githubv4.PullRequestReviewState
}

type pullRequestReviewsQuery struct {
	Repository struct {
		PullRequest struct {
			Reviews struct {
				PageInfo pageInfo
				Nodes    []reviewNode
			} `graphql:"reviews(first: $perPage, after: $cursor)"`
		} `graphql:"pullRequest(number: $number)"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

type reviewSearchQuery struct {
	Search struct {
		PageInfo pageInfo
		Edges    []struct {
			Node struct {
				Typename    string `graphql:"__typename"`
				PullRequest struct {
					Number     int
					Repository struct {
						NameWithOwner string
					}
					Reviews struct {
						PageInfo pageInfo
						Nodes    []reviewNode
					} `graphql:"reviews(first: 100)"`
				} `graphql:"... on PullRequest"`
			}
		}
	} `graphql:"search(query: $query, type: ISSUE, first: $perPage, after: $cursor)"`
}

// Authenticate resolves the viewer login. Any failure is fatal for the run.
func (g *GraphQLGateway) Authenticate(ctx context.Context) (string, error) {
	login, err := call(ctx, g.client, "query viewer", func(ctx context.Context) (string, error) {
		var q viewerQuery
		if err := g.graphqlClient.Query(ctx, &q, nil); err != nil {
			return "", err
		}
		return q.Viewer.Login, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	return login, nil
}

func (g *GraphQLGateway) ListMembers(ctx context.Context, org string) Listing[string] {
	log := g.logger.WithFields(logrus.Fields{"org": org, "backend": BackendGraphQL})
	log.Debug("fetching organization members")
	out := emptyListing[string]()
	truncated, err := paginateGraphQL(ctx, g.client, "list members of "+org,
		func(ctx context.Context, cursor *githubv4.String) (pageInfo, error) {
			var q membersQuery
			variables := map[string]interface{}{
				"org":     githubv4.String(org),
				"perPage": githubv4.Int(g.perPage),
				"cursor":  cursor,
			}
			if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
				return pageInfo{}, err
			}
			for _, n := range q.Organization.MembersWithRole.Nodes {
				if n.Login != "" {
					out.Items = append(out.Items, n.Login)
				}
			}
			return q.Organization.MembersWithRole.PageInfo, nil
		})
	if err != nil {
		log.WithError(err).Warn("could not list members; continuing without them")
	}
	out.Truncated = truncated
	return out
}

// ListActiveRepositories is fetched once per org and cutoff; FetchCommits reuses it.
func (g *GraphQLGateway) ListActiveRepositories(ctx context.Context, org string, since time.Time) Listing[domain.Repository] {
	return g.repos.get(org, since, func() Listing[domain.Repository] {
		return g.listRepositories(ctx, org, since)
	})
}

func (g *GraphQLGateway) listRepositories(ctx context.Context, org string, since time.Time) Listing[domain.Repository] {
	log := g.logger.WithFields(logrus.Fields{"org": org, "backend": BackendGraphQL})
	out := emptyListing[domain.Repository]()
	truncated, err := paginateGraphQL(ctx, g.client, "list repositories of "+org,
		func(ctx context.Context, cursor *githubv4.String) (pageInfo, error) {
			var q repositoriesQuery
			variables := map[string]interface{}{
				"org":     githubv4.String(org),
				"perPage": githubv4.Int(g.perPage),
				"cursor":  cursor,
			}
			if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
				return pageInfo{}, err
			}
			for _, n := range q.Organization.Repositories.Nodes {
				if repo, ok := repositoryFromNode(org, n, since); ok {
					out.Items = append(out.Items, repo)
				}
			}
			return q.Organization.Repositories.PageInfo, nil
		})
	if err != nil {
		log.WithError(err).Warn("could not list repositories")
	}
	out.Truncated = truncated
	return out
}

func repositoryFromNode(org string, n repoNode, since time.Time) (domain.Repository, bool) {
	var pushed time.Time
	if n.PushedAt != nil {
		pushed = n.PushedAt.Time
	}
	if pushed.Before(since) && n.UpdatedAt.Time.Before(since) {
		return domain.Repository{}, false
	}
	repo := domain.Repository{
		Owner:     n.Owner.Login,
		Name:      n.Name,
		Languages: make(map[string]int, len(n.Languages.Edges)),
		Stars:     n.StargazerCount,
		Forks:     n.ForkCount,
		PushedAt:  pushed,
	}
	if repo.Owner == "" {
		repo.Owner = org
	}
	if n.DefaultBranchRef != nil {
		repo.DefaultBranch = n.DefaultBranchRef.Name
	}
	for _, e := range n.Languages.Edges {
		repo.Languages[e.Node.Name] = e.Size
	}
	return repo, true
}

func (g *GraphQLGateway) FetchCommits(ctx context.Context, org string, since time.Time) Listing[domain.Commit] {
	log := g.logger.WithFields(logrus.Fields{"org": org, "backend": BackendGraphQL})
	log.Debug("fetching commits on all branches")
	repos := g.ListActiveRepositories(ctx, org, since)
	out := Listing[domain.Commit]{Items: []domain.Commit{}, Truncated: repos.Truncated}

	for _, repo := range repos.Items {
		if err := g.pacer.repoChecked(ctx, repo.FullName()); err != nil {
			log.WithError(err).Warn("stopping commit collection")
			return out
		}
		branches, truncated := g.listBranches(ctx, repo)
		out.Truncated = out.Truncated || truncated
		for _, branch := range branches {
			commits, truncated := g.listBranchHistory(ctx, repo, branch, since)
			out.Items = append(out.Items, commits...)
			out.Truncated = out.Truncated || truncated
		}
	}
	log.Debugf("collected %d branch commit records", len(out.Items))
	return out
}

func (g *GraphQLGateway) listBranches(ctx context.Context, repo domain.Repository) ([]string, bool) {
	var branches []string
	truncated, err := paginateGraphQL(ctx, g.client, "list branches of "+repo.FullName(),
		func(ctx context.Context, cursor *githubv4.String) (pageInfo, error) {
			var q refsQuery
			variables := map[string]interface{}{
				"owner":   githubv4.String(repo.Owner),
				"name":    githubv4.String(repo.Name),
				"perPage": githubv4.Int(g.perPage),
				"cursor":  cursor,
			}
			if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
				return pageInfo{}, err
			}
			for _, n := range q.Repository.Refs.Nodes {
				branches = append(branches, n.Name)
			}
			return q.Repository.Refs.PageInfo, nil
		})
	if err != nil {
		g.logger.WithField("repo", repo.FullName()).WithError(err).Warn("could not list branches")
	}
	return branches, truncated
}

func (g *GraphQLGateway) listBranchHistory(ctx context.Context, repo domain.Repository, branch string, since time.Time) ([]domain.Commit, bool) {
	var commits []domain.Commit
	truncated, err := paginateGraphQL(ctx, g.client, "list commits of "+repo.FullName()+"@"+branch,
		func(ctx context.Context, cursor *githubv4.String) (pageInfo, error) {
			var q historyQuery
			variables := map[string]interface{}{
				"owner":   githubv4.String(repo.Owner),
				"name":    githubv4.String(repo.Name),
				"ref":     githubv4.String("refs/heads/" + branch),
				"since":   githubv4.GitTimestamp{Time: since},
				"perPage": githubv4.Int(g.perPage),
				"cursor":  cursor,
			}
			if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
				return pageInfo{}, err
			}
			if q.Repository.Ref == nil {
				return pageInfo{}, nil
			}
			history := q.Repository.Ref.Target.Commit.History
			for _, n := range history.Nodes {
				commits = append(commits, commitFromNode(repo.FullName(), branch, n))
			}
			return history.PageInfo, nil
		})
	if err != nil {
		g.logger.WithFields(logrus.Fields{"repo": repo.FullName(), "branch": branch}).WithError(err).Warn("could not list commits")
	}
	return commits, truncated
}

func commitFromNode(repo, branch string, n historyNode) domain.Commit {
	c := domain.Commit{
		Repository: repo,
		Branches:   []string{branch},
		SHA:        string(n.Oid),
		Author: domain.Author{
			Name:  n.Author.Name,
			Email: n.Author.Email,
		},
		AuthoredAt: n.AuthoredDate.Time,
		Message:    n.Message,
		Additions:  n.Additions,
		Deletions:  n.Deletions,
		HasStats:   true,
	}
	if n.Author.User != nil {
		c.Author.Login = n.Author.User.Login
	}
	if n.ChangedFilesIfAvailable != nil {
		c.ChangedFiles = *n.ChangedFilesIfAvailable
	}
	return c
}

// FetchReviews searches pull requests updated at/after since. Filtering on each
// review's own submission time happens during reconciliation.
func (g *GraphQLGateway) FetchReviews(ctx context.Context, org string, since time.Time) Listing[domain.ReviewRecord] {
	log := g.logger.WithFields(logrus.Fields{"org": org, "backend": BackendGraphQL})
	log.Debug("fetching pull request reviews")
	query := fmt.Sprintf("org:%s is:pr updated:>=%s", org, since.UTC().Format(time.RFC3339))
	out := emptyListing[domain.ReviewRecord]()
	type morePages struct {
		repo   string
		number int
		cursor githubv4.String
	}
	var pending []morePages
	truncated, err := paginateGraphQL(ctx, g.client, "search reviews in "+org,
		func(ctx context.Context, cursor *githubv4.String) (pageInfo, error) {
			var q reviewSearchQuery
			variables := map[string]interface{}{
				"query":   githubv4.String(query),
				"perPage": githubv4.Int(g.perPage),
				"cursor":  cursor,
			}
			if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
				return pageInfo{}, err
			}
			for _, edge := range q.Search.Edges {
				if edge.Node.Typename != "PullRequest" {
					continue
				}
				pr := edge.Node.PullRequest
				for _, r := range pr.Reviews.Nodes {
					out.Items = append(out.Items, reviewFromNode(pr.Repository.NameWithOwner, pr.Number, r))
				}
				if pr.Reviews.PageInfo.HasNextPage {
					pending = append(pending, morePages{pr.Repository.NameWithOwner, pr.Number, pr.Reviews.PageInfo.EndCursor})
				}
			}
			return q.Search.PageInfo, nil
		})
	if err != nil {
		log.WithError(err).Warn("could not search reviews")
	}
	out.Truncated = truncated

	for _, p := range pending {
		reviews, truncated := g.listMoreReviews(ctx, p.repo, p.number, p.cursor)
		out.Items = append(out.Items, reviews...)
		out.Truncated = out.Truncated || truncated
	}
	return out
}

// listMoreReviews continues a pull request's review connection after the
// first page the search returned.
func (g *GraphQLGateway) listMoreReviews(ctx context.Context, repo string, number int, after githubv4.String) ([]domain.ReviewRecord, bool) {
	owner, name, ok := domain.SplitFullName(repo)
	if !ok {
		return nil, false
	}
	var reviews []domain.ReviewRecord
	truncated, err := paginateGraphQL(ctx, g.client, fmt.Sprintf("list reviews of %s#%d", repo, number),
		func(ctx context.Context, cursor *githubv4.String) (pageInfo, error) {
			if cursor == nil {
				cursor = githubv4.NewString(after)
			}
			var q pullRequestReviewsQuery
			variables := map[string]interface{}{
				"owner":   githubv4.String(owner),
				"name":    githubv4.String(name),
				"number":  githubv4.Int(number),
				"perPage": githubv4.Int(g.perPage),
				"cursor":  cursor,
			}
			if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
				return pageInfo{}, err
			}
			for _, r := range q.Repository.PullRequest.Reviews.Nodes {
				reviews = append(reviews, reviewFromNode(repo, number, r))
			}
			return q.Repository.PullRequest.Reviews.PageInfo, nil
		})
	if err != nil {
		g.logger.WithField("repo", repo).WithError(err).Warn("could not list reviews")
	}
	return reviews, truncated
}

func reviewFromNode(repo string, number int, n reviewNode) domain.ReviewRecord {
	record := domain.ReviewRecord{
		Repository:  repo,
		PullRequest: number,
		State:       string(n.State),
	}
	if n.Author != nil {
		record.Reviewer = n.Author.Login
	}
	if n.SubmittedAt != nil {
		record.SubmittedAt = n.SubmittedAt.Time
	}
	return record
}
