// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/naka-gawa/team-pulse/internal/domain"
	"github.com/naka-gawa/team-pulse/internal/gateway"
	"github.com/naka-gawa/team-pulse/internal/reconcile"
	"github.com/sirupsen/logrus"
)

// DefaultDetailCommits is how many recent commits per user get a detail fetch.
const DefaultDetailCommits = 5

// OrgActivity is the aggregated activity of one organization.
type OrgActivity struct {
	Org          string
	Members      []string
	Repositories []domain.Repository
	// Users holds one entry per identity, sorted by identity.
	Users      []domain.UserActivity
	Incomplete bool
}

// Stats returns the organization rollup.
func (o OrgActivity) Stats() domain.OrgStats {
	stats := domain.OrgStats{
		Name:               o.Org,
		Members:            len(o.Members),
		ActiveRepositories: len(o.Repositories),
		Incomplete:         o.Incomplete,
	}
	for _, u := range o.Users {
		stats.Commits += u.CommitCount()
		stats.Reviews += u.ReviewCount
		if u.Active() {
			stats.ActiveUsers++
		}
		if u.PartialLines() {
			stats.PartialLineUsers++
		}
	}
	return stats
}

// Aggregator is the use case for aggregating one organization's activity.
// It orchestrates the fetching and reconciling of data.
type Aggregator struct {
	fetcher       gateway.Fetcher
	detailCommits int
	logger        logrus.FieldLogger
}

// NewAggregator creates a new Aggregator instance.
func NewAggregator(fetcher gateway.Fetcher, detailCommits int, logger logrus.FieldLogger) *Aggregator {
	if detailCommits < 0 {
		detailCommits = 0
	}
	return &Aggregator{
		fetcher:       fetcher,
		detailCommits: detailCommits,
		logger:        logger,
	}
}

// Organization fetches and reconciles everything for org. Fetch failures never
// abort: the affected listing is simply empty.
func (a *Aggregator) Organization(ctx context.Context, org string, since time.Time) OrgActivity {
	log := a.logger.WithField("org", org)
	log.Info("aggregating organization")

	members := a.fetcher.ListMembers(ctx, org)
	repos := a.fetcher.ListActiveRepositories(ctx, org, since)
	commits := a.fetcher.FetchCommits(ctx, org, since)
	reviews := a.fetcher.FetchReviews(ctx, org, since)

	deduped := reconcile.Dedupe(commits.Items)
	byIdentity := reconcile.GroupByIdentity(deduped)
	reviewCounts := reconcile.CountReviews(reviews.Items, since)
	log.Debugf("%d branch records reconciled into %d commits", len(commits.Items), len(deduped))

	memberSet := make(map[string]struct{}, len(members.Items))
	for _, m := range members.Items {
		memberSet[m] = struct{}{}
	}

	identities := reconcile.Identities(members.Items, byIdentity, reviewCounts)
	users := make([]domain.UserActivity, 0, len(identities))
	for _, id := range identities {
		_, member := memberSet[id]
		users = append(users, domain.NewUserActivity(id, org, member, byIdentity[id], reviewCounts[id]))
	}

	result := OrgActivity{
		Org:          org,
		Members:      members.Items,
		Repositories: repos.Items,
		Users:        users,
		Incomplete:   members.Truncated || repos.Truncated || commits.Truncated || reviews.Truncated,
	}
	if result.Incomplete {
		log.Warn("results are incomplete: a page ceiling was hit")
	}
	return result
}

// Enrich fetches commit details for the most recent commits of a user. Commits
// listed without line counts get them from the detail. When withPatches is
// false, only commits lacking stats are fetched.
func (a *Aggregator) Enrich(ctx context.Context, ua domain.UserActivity, withPatches bool) domain.UserActivity {
	if a.detailCommits == 0 || len(ua.Commits) == 0 {
		return ua
	}
	commits := append([]domain.Commit{}, ua.Commits...)
	details := make(map[string]domain.CommitDetail, a.detailCommits)
	for k, v := range ua.Details {
		details[k] = v
	}

	limit := min(a.detailCommits, len(commits))
	for i := 0; i < limit; i++ {
		c := &commits[i]
		if c.HasStats && !withPatches {
			continue
		}
		if _, ok := details[c.Key()]; ok {
			continue
		}
		detail, ok := a.fetcher.FetchCommitDetail(ctx, c.Repository, c.SHA)
		if !ok {
			continue
		}
		if !c.HasStats {
			c.Additions = detail.Additions
			c.Deletions = detail.Deletions
			c.ChangedFiles = detail.ChangedFiles
			c.HasStats = true
		}
		if withPatches {
			details[c.Key()] = detail
		}
	}
	ua.UncountedCommits = countMissingStats(commits)
	if ua.UncountedCommits > 0 {
		a.logger.WithField("user", ua.Identity).Debugf("%d older commits have no line counts", ua.UncountedCommits)
	}

	ua.Commits = commits
	ua.LinesChanged = linesChanged(commits)
	if len(details) > 0 {
		ua.Details = details
	}
	return ua
}

func countMissingStats(commits []domain.Commit) int {
	n := 0
	for _, c := range commits {
		if !c.HasStats {
			n++
		}
	}
	return n
}

func linesChanged(commits []domain.Commit) int {
	total := 0
	for _, c := range commits {
		total += c.LinesChanged()
	}
	return total
}

func sortUsers(users []domain.UserReport) {
	sort.SliceStable(users, func(i, j int) bool {
		if users[i].Score.Total != users[j].Score.Total {
			return users[i].Score.Total > users[j].Score.Total
		}
		return users[i].Activity.Identity < users[j].Activity.Identity
	})
}
