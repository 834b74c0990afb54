package render

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/naka-gawa/team-pulse/internal/domain"
	"github.com/xuri/excelize/v2"
)

const (
	usersSheet = "Users"
	orgsSheet  = "Organizations"
	reposSheet = "Repositories"
)

func writeXLSX(w io.Writer, r *domain.Report, _ Options) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", usersSheet); err != nil {
		return err
	}
	for _, name := range []string{orgsSheet, reposSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}

	users := [][]interface{}{{"Rank", "User", "Member", "Organizations", "Commits", "Lines changed", "Uncounted commits", "Repositories", "Reviews",
		"Code volume", "Complexity", "Technical depth", "Scope", "Review contribution", "Total", "Source", "Summary"}}
	for i, u := range r.Users {
		a, s := u.Activity, u.Score
		users = append(users, []interface{}{
			i + 1, a.Identity, a.Member, strings.Join(a.Organizations, ", "), a.CommitCount(), a.LinesChanged,
			a.UncountedCommits, len(a.Repositories), a.ReviewCount, s.CodeVolume, s.Complexity, s.TechnicalDepth, s.Scope,
			s.ReviewContribution, s.Total, string(s.Source), s.Summary,
		})
	}
	if err := writeSheet(f, usersSheet, users); err != nil {
		return err
	}

	orgs := [][]interface{}{{"Organization", "Members", "Active users", "Commits", "Reviews", "Active repositories", "Incomplete"}}
	for _, o := range r.Organizations {
		orgs = append(orgs, []interface{}{o.Name, o.Members, o.ActiveUsers, o.Commits, o.Reviews, o.ActiveRepositories, o.Incomplete})
	}
	if err := writeSheet(f, orgsSheet, orgs); err != nil {
		return err
	}

	repos := [][]interface{}{{"Repository", "Default branch", "Languages", "Stars", "Forks", "Pushed at"}}
	for _, repo := range r.Repositories {
		repos = append(repos, []interface{}{
			repo.FullName(), repo.DefaultBranch, languageList(repo.Languages), repo.Stars, repo.Forks, pushedAt(repo),
		})
	}
	if err := writeSheet(f, reposSheet, repos); err != nil {
		return err
	}

	if err := f.SetPanes(usersSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	return f.Write(w)
}

func writeSheet(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// languageList orders languages by size, largest first.
func languageList(languages map[string]int) string {
	names := make([]string, 0, len(languages))
	for name := range languages {
		names = append(names, name)
	}
	sortBySize(names, languages)
	return strings.Join(names, ", ")
}

func sortBySize(names []string, size map[string]int) {
	sort.Slice(names, func(i, j int) bool {
		if size[names[i]] != size[names[j]] {
			return size[names[i]] > size[names[j]]
		}
		return names[i] < names[j]
	})
}

func pushedAt(repo domain.Repository) string {
	if repo.PushedAt.IsZero() {
		return ""
	}
	return repo.PushedAt.UTC().Format(time.RFC3339)
}
