package domain

// OrgStats holds the rollup counts for a single organization.
type OrgStats struct {
	Name               string `json:"name"`
	Members            int    `json:"members"`
	ActiveUsers        int    `json:"active_users"`
	Commits            int    `json:"commits"`
	Reviews            int    `json:"reviews"`
	ActiveRepositories int    `json:"active_repositories"`
	// Incomplete is set when a pagination ceiling truncated a listing.
	Incomplete bool `json:"incomplete"`
	// PartialLineUsers counts users whose line totals leave out commits without stats.
	PartialLineUsers int `json:"partial_line_users"`
}

// TeamSummary is the team-wide rollup across all organizations.
type TeamSummary struct {
	Users            int     `json:"users"`
	ActiveUsers      int     `json:"active_users"`
	Commits          int     `json:"commits"`
	Reviews          int     `json:"reviews"`
	LinesChanged     int     `json:"lines_changed"`
	MeanScore        float64 `json:"mean_score"`
	MedianScore      float64 `json:"median_score"`
	P90Score         float64 `json:"p90_score"`
	MedianLines      float64 `json:"median_lines"`
	TopContributor   string  `json:"top_contributor,omitempty"`
	FallbackScored   int     `json:"fallback_scored"`
	PartialLineUsers int     `json:"partial_line_users"`
}
