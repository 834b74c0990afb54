package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/naka-gawa/team-pulse/internal/domain"
	"github.com/parquet-go/parquet-go"
)

// UserRow is one user of one run in the Parquet export.
type UserRow struct {
	RunID              string    `parquet:"run_id,snappy"`
	GeneratedAt        time.Time `parquet:"generated_at,snappy"`
	Since              time.Time `parquet:"since,snappy"`
	Identity           string    `parquet:"identity,snappy"`
	Member             bool      `parquet:"member,snappy"`
	Organizations      string    `parquet:"organizations,snappy"`
	Commits            int32     `parquet:"commits,snappy"`
	LinesChanged       int32     `parquet:"lines_changed,snappy"`
	UncountedCommits   int32     `parquet:"uncounted_commits,snappy"`
	Repositories       int32     `parquet:"repositories,snappy"`
	Reviews            int32     `parquet:"reviews,snappy"`
	CodeVolume         int32     `parquet:"code_volume,snappy"`
	Complexity         int32     `parquet:"complexity,snappy"`
	TechnicalDepth     int32     `parquet:"technical_depth,snappy"`
	Scope              int32     `parquet:"scope,snappy"`
	ReviewContribution int32     `parquet:"review_contribution,snappy"`
	Total              int32     `parquet:"total,snappy"`
	Source             string    `parquet:"source,snappy"`
	Summary            *string   `parquet:"summary,optional,snappy"`
}

// UserRows flattens a report into Parquet rows.
func UserRows(r *domain.Report) []UserRow {
	rows := make([]UserRow, 0, len(r.Users))
	for _, u := range r.Users {
		a, s := u.Activity, u.Score
		row := UserRow{
			RunID:              r.RunID,
			GeneratedAt:        r.GeneratedAt,
			Since:              r.Since,
			Identity:           a.Identity,
			Member:             a.Member,
			Organizations:      strings.Join(a.Organizations, ","),
			Commits:            int32(a.CommitCount()),
			LinesChanged:       int32(a.LinesChanged),
			UncountedCommits:   int32(a.UncountedCommits),
			Repositories:       int32(len(a.Repositories)),
			Reviews:            int32(a.ReviewCount),
			CodeVolume:         int32(s.CodeVolume),
			Complexity:         int32(s.Complexity),
			TechnicalDepth:     int32(s.TechnicalDepth),
			Scope:              int32(s.Scope),
			ReviewContribution: int32(s.ReviewContribution),
			Total:              int32(s.Total),
			Source:             string(s.Source),
		}
		if s.Summary != "" {
			summary := s.Summary
			row.Summary = &summary
		}
		rows = append(rows, row)
	}
	return rows
}

func writeParquet(w io.Writer, r *domain.Report, _ Options) error {
	writer := parquet.NewGenericWriter[UserRow](w)
	if _, err := writer.Write(UserRows(r)); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	return writer.Close()
}
