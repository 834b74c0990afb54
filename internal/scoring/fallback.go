package scoring

import (
	"fmt"

	"github.com/naka-gawa/team-pulse/internal/domain"
)

// FallbackPrefix marks summaries produced by the local heuristic.
const FallbackPrefix = "[fallback]"

// step maps a counter to a score: the first bucket whose upTo is >= the value wins.
// Values above every bucket score domain.MaxSubScore. Zero always scores zero.
type step []struct {
	upTo  int
	score int
}

func (s step) score(value int) int {
	if value <= 0 {
		return 0
	}
	for _, b := range s {
		if value <= b.upTo {
			return b.score
		}
	}
	return domain.MaxSubScore
}

var (
	linesSteps = step{{500, 2}, {2000, 4}, {5000, 6}, {10000, 8}}
	// Complexity and scope share the shape but are scored independently.
	commitSteps    = step{{5, 2}, {15, 4}, {30, 6}, {60, 8}}
	repoSteps      = step{{1, 3}, {2, 5}, {4, 7}, {7, 9}}
	reviewSteps    = step{{2, 3}, {5, 5}, {10, 7}, {20, 9}}
	multiRepoBonus = 2
)

// Fallback scores a user from observable counters alone. It is a pure function.
func Fallback(c domain.Counters) domain.ContributionScore {
	complexity := commitSteps.score(c.Commits)
	if c.Repositories > 1 && complexity > 0 {
		complexity = min(complexity+multiRepoBonus, domain.MaxSubScore)
	}
	score := domain.ContributionScore{
		CodeVolume:         linesSteps.score(c.LinesChanged),
		Complexity:         complexity,
		TechnicalDepth:     repoSteps.score(c.Repositories),
		Scope:              commitSteps.score(c.Commits),
		ReviewContribution: reviewSteps.score(c.Reviews),
		Source:             domain.SourceFallback,
	}
	score.Summary = fmt.Sprintf("%s %d commits, %d lines changed across %d repositories, %d reviews.",
		FallbackPrefix, c.Commits, c.LinesChanged, c.Repositories, c.Reviews)
	return score.Recompute()
}
