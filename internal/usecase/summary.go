package usecase

import (
	"github.com/montanaflynn/stats"
	"github.com/naka-gawa/team-pulse/internal/domain"
)

// buildTeamSummary computes the team-wide rollup. Score statistics only
// consider active users.
func buildTeamSummary(users []domain.UserReport) domain.TeamSummary {
	summary := domain.TeamSummary{Users: len(users)}
	var totals, lines stats.Float64Data
	var top *domain.UserReport
	for i, u := range users {
		summary.Commits += u.Activity.CommitCount()
		summary.Reviews += u.Activity.ReviewCount
		summary.LinesChanged += u.Activity.LinesChanged
		if u.Activity.PartialLines() {
			summary.PartialLineUsers++
		}
		if !u.Activity.Active() {
			continue
		}
		summary.ActiveUsers++
		if u.Score.Fallback() {
			summary.FallbackScored++
		}
		totals = append(totals, float64(u.Score.Total))
		lines = append(lines, float64(u.Activity.LinesChanged))
		if top == nil || better(u, *top) {
			top = &users[i]
		}
	}
	if top != nil {
		summary.TopContributor = top.Activity.Identity
	}
	if len(totals) == 0 {
		return summary
	}

	summary.MeanScore = round(totals.Mean())
	summary.MedianScore = round(totals.Median())
	summary.P90Score = round(stats.PercentileNearestRank(totals, 90))
	summary.MedianLines = round(lines.Median())
	return summary
}

func better(a, b domain.UserReport) bool {
	if a.Score.Total != b.Score.Total {
		return a.Score.Total > b.Score.Total
	}
	if a.Activity.LinesChanged != b.Activity.LinesChanged {
		return a.Activity.LinesChanged > b.Activity.LinesChanged
	}
	return a.Activity.Identity < b.Activity.Identity
}

// round keeps two decimals; statistics errors only occur on empty input.
func round(v float64, err error) float64 {
	if err != nil {
		return 0
	}
	r, err := stats.Round(v, 2)
	if err != nil {
		return 0
	}
	return r
}
