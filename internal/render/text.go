package render

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/naka-gawa/team-pulse/internal/domain"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// scoreBand colors a total by how much of the maximum it reaches.
func scoreBand(total int, colorize bool) string {
	text := strconv.Itoa(total)
	if !colorize {
		return text
	}
	var c *color.Color
	switch {
	case total*10 >= maxTotal*7:
		c = color.New(color.FgGreen, color.Bold)
	case total*10 >= maxTotal*4:
		c = color.New(color.FgYellow)
	default:
		c = color.New(color.FgRed)
	}
	c.EnableColor()
	return c.Sprint(text)
}

func writeText(w io.Writer, r *domain.Report, opts Options) error {
	heading := fmt.Sprint
	if opts.Color {
		bold := color.New(color.Bold)
		bold.EnableColor()
		heading = bold.Sprint
	}

	title := "Team pulse"
	if r.Team != "" {
		title += " - " + r.Team
	}
	if _, err := fmt.Fprintf(w, "%s\n%s, since %s (%s backend)\n\n",
		heading(title), r.Window, r.Since.Format(time.DateTime), r.Backend); err != nil {
		return err
	}

	orgs := tablewriter.NewWriter(w)
	orgs.Header(orgHeaders)
	rows := make([][]string, 0, len(r.Organizations))
	for _, o := range r.Organizations {
		rows = append(rows, orgRow(o))
	}
	if err := orgs.Bulk(rows); err != nil {
		return err
	}
	if err := orgs.Render(); err != nil {
		return err
	}
	fmt.Fprintln(w)

	users := tablewriter.NewWriter(w)
	users.Header(userHeaders)
	users.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	rows = make([][]string, 0, len(r.Users))
	for i, u := range r.Users {
		rows = append(rows, userRow(i+1, u, scoreBand(u.Score.Total, opts.Color)))
	}
	if err := users.Bulk(rows); err != nil {
		return err
	}
	if err := users.Render(); err != nil {
		return err
	}
	if r.Summary.PartialLineUsers > 0 {
		fmt.Fprintln(w, partialLinesNote)
	}

	s := r.Summary
	_, err := fmt.Fprintf(w, "\n%d users (%d active), %d commits, %d reviews, %d lines; mean score %.2f, top contributor %s\n",
		s.Users, s.ActiveUsers, s.Commits, s.Reviews, s.LinesChanged, s.MeanScore, orNone(s.TopContributor))
	return err
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
