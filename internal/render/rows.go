package render

import (
	"strconv"

	"github.com/naka-gawa/team-pulse/internal/domain"
)

var (
	orgHeaders  = []string{"Organization", "Members", "Active", "Commits", "Reviews", "Repos", "Incomplete"}
	userHeaders = []string{"#", "User", "Commits", "Lines", "Repos", "Reviews", "Volume", "Complexity", "Depth", "Scope", "Review", "Total", "Source"}
)

func orgRow(o domain.OrgStats) []string {
	incomplete := ""
	if o.Incomplete {
		incomplete = "yes"
	}
	return []string{
		o.Name,
		strconv.Itoa(o.Members),
		strconv.Itoa(o.ActiveUsers),
		strconv.Itoa(o.Commits),
		strconv.Itoa(o.Reviews),
		strconv.Itoa(o.ActiveRepositories),
		incomplete,
	}
}

// userRow formats one user; total is passed separately so callers can color it.
func userRow(rank int, u domain.UserReport, total string) []string {
	a, s := u.Activity, u.Score
	return []string{
		strconv.Itoa(rank),
		a.Identity,
		strconv.Itoa(a.CommitCount()),
		linesCell(a),
		strconv.Itoa(len(a.Repositories)),
		strconv.Itoa(a.ReviewCount),
		strconv.Itoa(s.CodeVolume),
		strconv.Itoa(s.Complexity),
		strconv.Itoa(s.TechnicalDepth),
		strconv.Itoa(s.Scope),
		strconv.Itoa(s.ReviewContribution),
		total,
		string(s.Source),
	}
}

// linesCell marks line totals that leave out commits without stats.
func linesCell(a domain.UserActivity) string {
	if a.PartialLines() {
		return strconv.Itoa(a.LinesChanged) + "*"
	}
	return strconv.Itoa(a.LinesChanged)
}

const partialLinesNote = "* line total leaves out older commits listed without line counts"

// maxTotal is the highest possible total score.
const maxTotal = 5 * domain.MaxSubScore
