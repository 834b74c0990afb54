package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/naka-gawa/team-pulse/internal/domain"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
)

func writeMarkdown(w io.Writer, r *domain.Report, _ Options) error {
	title := "Team pulse"
	if r.Team != "" {
		title += ": " + r.Team
	}
	if _, err := fmt.Fprintf(w, "# %s\n\n", title); err != nil {
		return err
	}
	fmt.Fprintf(w, "- Window: %s (since %s)\n", r.Window, r.Since.Format(time.RFC3339))
	fmt.Fprintf(w, "- Generated: %s\n", r.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "- Backend: %s\n", r.Backend)
	fmt.Fprintf(w, "- Run: %s\n\n", r.RunID)

	fmt.Fprint(w, "## Organizations\n\n")
	orgs := make([][]string, 0, len(r.Organizations))
	for _, o := range r.Organizations {
		orgs = append(orgs, orgRow(o))
	}
	if err := markdownTable(w, orgHeaders, orgs); err != nil {
		return err
	}

	fmt.Fprint(w, "\n## Users\n\n")
	users := make([][]string, 0, len(r.Users))
	for i, u := range r.Users {
		users = append(users, userRow(i+1, u, strconv.Itoa(u.Score.Total)))
	}
	if err := markdownTable(w, userHeaders, users); err != nil {
		return err
	}
	if r.Summary.PartialLineUsers > 0 {
		fmt.Fprintf(w, "\n%s\n", partialLinesNote)
	}

	s := r.Summary
	fmt.Fprint(w, "\n## Team summary\n\n")
	fmt.Fprintf(w, "- Users: %d (%d active)\n", s.Users, s.ActiveUsers)
	fmt.Fprintf(w, "- Commits: %d, reviews: %d, lines changed: %d\n", s.Commits, s.Reviews, s.LinesChanged)
	fmt.Fprintf(w, "- Score mean/median/p90: %.2f / %.2f / %.2f\n", s.MeanScore, s.MedianScore, s.P90Score)
	if s.TopContributor != "" {
		fmt.Fprintf(w, "- Top contributor: %s\n", s.TopContributor)
	}
	if s.FallbackScored > 0 {
		fmt.Fprintf(w, "- Scored by fallback heuristic: %d\n", s.FallbackScored)
	}

	active := r.ActiveUsers()
	if len(active) == 0 {
		return nil
	}
	fmt.Fprint(w, "\n## Summaries\n")
	for _, u := range active {
		summary := strings.TrimSpace(u.Score.Summary)
		if summary == "" {
			summary = "_No summary._"
		}
		if _, err := fmt.Fprintf(w, "\n### %s\n\n%s\n", u.Activity.Identity, summary); err != nil {
			return err
		}
	}
	return nil
}

func markdownTable(w io.Writer, headers []string, rows [][]string) error {
	table := tablewriter.NewTable(w, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header(headers)
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}
