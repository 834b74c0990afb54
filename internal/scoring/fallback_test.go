package scoring

import (
	"strings"
	"testing"

	"github.com/naka-gawa/team-pulse/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestFallback(t *testing.T) {
	testCases := []struct {
		name     string
		counters domain.Counters
		expected domain.ContributionScore
	}{
		{
			name:     "no activity scores zero everywhere",
			counters: domain.Counters{},
			expected: domain.ContributionScore{},
		},
		{
			name:     "single small commit",
			counters: domain.Counters{Commits: 1, LinesChanged: 150, Repositories: 1},
			expected: domain.ContributionScore{CodeVolume: 2, Complexity: 2, TechnicalDepth: 3, Scope: 2, Total: 9},
		},
		{
			name:     "bucket edges are inclusive",
			counters: domain.Counters{Commits: 15, LinesChanged: 2000, Repositories: 2, Reviews: 5},
			expected: domain.ContributionScore{CodeVolume: 4, Complexity: 6, TechnicalDepth: 5, Scope: 4, ReviewContribution: 5, Total: 24},
		},
		{
			name:     "multi-repository bonus is capped",
			counters: domain.Counters{Commits: 100, LinesChanged: 50000, Repositories: 12, Reviews: 40},
			expected: domain.ContributionScore{CodeVolume: 10, Complexity: 10, TechnicalDepth: 10, Scope: 10, ReviewContribution: 10, Total: 50},
		},
		{
			name:     "reviews only",
			counters: domain.Counters{Reviews: 3},
			expected: domain.ContributionScore{ReviewContribution: 5, Total: 5},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Fallback(tc.counters)

			assert.Equal(t, tc.expected.CodeVolume, got.CodeVolume, "code volume")
			assert.Equal(t, tc.expected.Complexity, got.Complexity, "complexity")
			assert.Equal(t, tc.expected.TechnicalDepth, got.TechnicalDepth, "technical depth")
			assert.Equal(t, tc.expected.Scope, got.Scope, "scope")
			assert.Equal(t, tc.expected.ReviewContribution, got.ReviewContribution, "review contribution")
			assert.Equal(t, tc.expected.Total, got.Total, "total")
			assert.Equal(t, domain.SourceFallback, got.Source)
			assert.True(t, strings.HasPrefix(got.Summary, FallbackPrefix))
		})
	}
}

func TestFallback_Deterministic(t *testing.T) {
	counters := domain.Counters{Commits: 7, LinesChanged: 3210, Repositories: 3, Reviews: 9}

	assert.Equal(t, Fallback(counters), Fallback(counters))
}

func TestFallback_TotalIsSum(t *testing.T) {
	for commits := 0; commits <= 80; commits += 7 {
		for repos := 0; repos <= 9; repos += 2 {
			got := Fallback(domain.Counters{Commits: commits, LinesChanged: commits * 333, Repositories: repos, Reviews: commits / 2})
			sum := got.CodeVolume + got.Complexity + got.TechnicalDepth + got.Scope + got.ReviewContribution
			assert.Equal(t, sum, got.Total)
			for _, v := range []int{got.CodeVolume, got.Complexity, got.TechnicalDepth, got.Scope, got.ReviewContribution} {
				assert.GreaterOrEqual(t, v, 0)
				assert.LessOrEqual(t, v, domain.MaxSubScore)
			}
		}
	}
}
