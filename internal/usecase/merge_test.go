package usecase

import (
	"testing"
	"time"

	"github.com/naka-gawa/team-pulse/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestMerge(t *testing.T) {
	day := testSince.Add(24 * time.Hour)
	a := domain.NewUserActivity("alice", "acme", true, []domain.Commit{
		commit("acme/api", "main", "a1", "alice", 100, 20, day),
		commit("shared/lib", "main", "s1", "alice", 5, 5, day),
	}, 2)
	b := domain.NewUserActivity("alice", "globex", false, []domain.Commit{
		commit("globex/web", "main", "g1", "alice", 300, 0, day.Add(time.Hour)),
		commit("shared/lib", "dev", "s2", "alice", 1, 1, day.Add(2*time.Hour)),
	}, 3)

	got := Merge(a, b)

	assert.Equal(t, "alice", got.Identity)
	assert.True(t, got.Member)
	assert.Equal(t, a.LinesChanged+b.LinesChanged, got.LinesChanged)
	assert.Equal(t, []string{"acme/api", "globex/web", "shared/lib"}, got.Repositories)
	assert.Equal(t, []string{"acme", "globex"}, got.Organizations)
	assert.Equal(t, 5, got.ReviewCount)
	assert.Equal(t, 4, got.CommitCount())
	assert.Equal(t, "s2", got.Commits[0].SHA, "newest first")
}

func TestMerge_SameCommitKeptOnce(t *testing.T) {
	c := commit("shared/lib", "main", "s1", "alice", 10, 0, testSince)
	a := domain.NewUserActivity("alice", "acme", true, []domain.Commit{c}, 0)
	b := domain.NewUserActivity("alice", "globex", true, []domain.Commit{c}, 0)

	got := Merge(a, b)

	assert.Equal(t, 1, got.CommitCount())
	assert.Equal(t, 10, got.LinesChanged)
	assert.Equal(t, []string{"shared/lib"}, got.Repositories)
}

func TestMerge_PrefersCommitWithStats(t *testing.T) {
	counted := commit("shared/lib", "main", "s1", "alice", 10, 2, testSince)
	uncounted := counted
	uncounted.Additions, uncounted.Deletions, uncounted.HasStats = 0, 0, false
	a := domain.NewUserActivity("alice", "acme", true, []domain.Commit{uncounted}, 0)
	b := domain.NewUserActivity("alice", "globex", true, []domain.Commit{counted}, 0)
	assert.Equal(t, 1, a.UncountedCommits)

	for _, got := range []domain.UserActivity{Merge(a, b), Merge(b, a)} {
		assert.Equal(t, 1, got.CommitCount())
		assert.Equal(t, 12, got.LinesChanged)
		assert.Equal(t, 0, got.UncountedCommits)
	}
}

func TestMerge_IsOrderIndependent(t *testing.T) {
	a := domain.NewUserActivity("alice", "acme", true, []domain.Commit{commit("acme/api", "main", "a1", "alice", 1, 2, testSince)}, 1)
	b := domain.NewUserActivity("alice", "globex", true, []domain.Commit{commit("globex/web", "main", "g1", "alice", 3, 4, testSince)}, 2)

	assert.Equal(t, Merge(a, b), Merge(b, a))
}

func TestMergeReports(t *testing.T) {
	a := domain.UserReport{
		Activity: domain.NewUserActivity("alice", "acme", true, nil, 0),
		Score:    domain.ContributionScore{CodeVolume: 8, Complexity: 2, TechnicalDepth: 3, Scope: 1, ReviewContribution: 0, Summary: "api work", Source: domain.SourceRemote}.Recompute(),
	}
	b := domain.UserReport{
		Activity: domain.NewUserActivity("alice", "globex", true, nil, 0),
		Score:    domain.ContributionScore{CodeVolume: 2, Complexity: 6, TechnicalDepth: 3, Scope: 4, ReviewContribution: 5, Summary: "[fallback] x", Source: domain.SourceFallback}.Recompute(),
	}

	got := MergeReports(a, b)

	assert.Equal(t, 8, got.Score.CodeVolume)
	assert.Equal(t, 6, got.Score.Complexity)
	assert.Equal(t, 3, got.Score.TechnicalDepth)
	assert.Equal(t, 4, got.Score.Scope)
	assert.Equal(t, 5, got.Score.ReviewContribution)
	assert.Equal(t, 26, got.Score.Total)
	assert.Equal(t, domain.SourceMixed, got.Score.Source)
	assert.Equal(t, []string{"acme", "globex"}, got.Activity.Organizations)
}
