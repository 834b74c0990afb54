package usecase

import (
	"github.com/naka-gawa/team-pulse/internal/domain"
)

// Merge combines one identity's activity from two organizations. Counts are
// summed, sets are unioned, and a commit seen in both is kept once.
func Merge(a, b domain.UserActivity) domain.UserActivity {
	merged := domain.UserActivity{
		Identity:      a.Identity,
		Member:        a.Member || b.Member,
		Organizations: union(a.Organizations, b.Organizations),
		Repositories:  union(a.Repositories, b.Repositories),
		ReviewCount:   a.ReviewCount + b.ReviewCount,
	}
	if merged.Identity == "" {
		merged.Identity = b.Identity
	}

	seen := make(map[string]int, len(a.Commits)+len(b.Commits))
	merged.Commits = make([]domain.Commit, 0, len(a.Commits)+len(b.Commits))
	for _, c := range append(append([]domain.Commit{}, a.Commits...), b.Commits...) {
		if i, ok := seen[c.Key()]; ok {
			if !merged.Commits[i].HasStats && c.HasStats {
				merged.Commits[i] = c
			}
			continue
		}
		seen[c.Key()] = len(merged.Commits)
		merged.Commits = append(merged.Commits, c)
	}
	domain.SortCommits(merged.Commits)
	merged.LinesChanged = linesChanged(merged.Commits)
	merged.UncountedCommits = countMissingStats(merged.Commits)

	if len(a.Details)+len(b.Details) > 0 {
		merged.Details = make(map[string]domain.CommitDetail, len(a.Details)+len(b.Details))
		for k, v := range a.Details {
			merged.Details[k] = v
		}
		for k, v := range b.Details {
			merged.Details[k] = v
		}
	}
	return merged
}

// MergeReports merges activity and keeps the per-axis maximum of the scores.
func MergeReports(a, b domain.UserReport) domain.UserReport {
	return domain.UserReport{
		Activity: Merge(a.Activity, b.Activity),
		Score:    domain.MaxScore(a.Score, b.Score),
	}
}

func union(a, b []string) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		set[s] = struct{}{}
	}
	return domain.SortedKeys(set)
}
