package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/naka-gawa/team-pulse/internal/domain"
	"github.com/naka-gawa/team-pulse/internal/gateway"
	"github.com/naka-gawa/team-pulse/internal/retry"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrNoBackend is returned when the backend could not be reached at all.
var ErrNoBackend = errors.New("no backend reachable")

// Scorer scores one user's activity. It never fails.
type Scorer interface {
	Score(ctx context.Context, activity domain.UserActivity) domain.ContributionScore
}

// PipelineOptions configures one run.
type PipelineOptions struct {
	Organizations []string
	Window        time.Duration
	// WindowLabel is the window as the user wrote it, e.g. "7 days".
	WindowLabel string
	Team        string
	Workers     int
	// Patches requests per-file patches for the scoring prompt.
	Patches bool
	Now     func() time.Time
}

// Pipeline runs Init, the per-organization stages, and the cross-organization merge.
type Pipeline struct {
	fetcher    gateway.Fetcher
	aggregator *Aggregator
	scorer     Scorer
	opts       PipelineOptions
	logger     logrus.FieldLogger
}

// NewPipeline creates a Pipeline.
func NewPipeline(fetcher gateway.Fetcher, aggregator *Aggregator, scorer Scorer, opts PipelineOptions, logger logrus.FieldLogger) *Pipeline {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Pipeline{
		fetcher:    fetcher,
		aggregator: aggregator,
		scorer:     scorer,
		opts:       opts,
		logger:     logger,
	}
}

type orgResult struct {
	activity OrgActivity
	users    []domain.UserReport
}

// Run produces the report. Only authentication and reachability failures are
// returned as errors; every other failure degrades the report instead.
func (p *Pipeline) Run(ctx context.Context) (*domain.Report, error) {
	started := p.opts.Now().UTC()
	since := started.Add(-p.opts.Window)
	log := p.logger.WithField("backend", p.fetcher.Name())
	log.Infof("collecting activity since %s", since.Format(time.RFC3339))

	login, err := p.fetcher.Authenticate(ctx)
	if err != nil {
		if errors.Is(err, retry.ErrExhausted) {
			return nil, fmt.Errorf("%w: %w", ErrNoBackend, err)
		}
		return nil, err
	}
	log.Debugf("authenticated as %s", login)

	results := make([]orgResult, len(p.opts.Organizations))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(p.opts.Workers)
	for i, org := range p.opts.Organizations {
		eg.Go(func() error {
			results[i] = p.processOrganization(egCtx, org, since)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	report := &domain.Report{
		RunID:         uuid.NewString(),
		Team:          p.opts.Team,
		Backend:       p.fetcher.Name(),
		GeneratedAt:   started,
		Since:         since,
		Window:        p.opts.WindowLabel,
		Organizations: make([]domain.OrgStats, 0, len(results)),
	}
	merged := make(map[string]domain.UserReport)
	repos := make(map[string]domain.Repository)
	for _, r := range results {
		report.Organizations = append(report.Organizations, r.activity.Stats())
		for _, repo := range r.activity.Repositories {
			if _, ok := repos[repo.FullName()]; !ok {
				repos[repo.FullName()] = repo
			}
		}
		for _, u := range r.users {
			id := u.Activity.Identity
			if prev, ok := merged[id]; ok {
				merged[id] = MergeReports(prev, u)
				continue
			}
			merged[id] = u
		}
	}

	report.Repositories = make([]domain.Repository, 0, len(repos))
	for _, repo := range repos {
		report.Repositories = append(report.Repositories, repo)
	}
	sort.Slice(report.Repositories, func(i, j int) bool {
		return report.Repositories[i].FullName() < report.Repositories[j].FullName()
	})

	report.Users = make([]domain.UserReport, 0, len(merged))
	for _, u := range merged {
		report.Users = append(report.Users, u)
	}
	sortUsers(report.Users)
	report.Summary = buildTeamSummary(report.Users)

	log.Infof("report ready: %d users, %d organizations", len(report.Users), len(report.Organizations))
	return report, nil
}

// processOrganization runs FetchMembers through Score for one organization.
func (p *Pipeline) processOrganization(ctx context.Context, org string, since time.Time) orgResult {
	activity := p.aggregator.Organization(ctx, org, since)
	users := make([]domain.UserReport, 0, len(activity.Users))
	for i, ua := range activity.Users {
		if ua.Active() {
			ua = p.aggregator.Enrich(ctx, ua, p.opts.Patches)
			activity.Users[i] = ua
		}
		users = append(users, domain.UserReport{
			Activity: ua,
			Score:    p.scorer.Score(ctx, ua),
		})
	}
	return orgResult{activity: activity, users: users}
}
