// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"sort"
	"strings"
	"time"
)

// Repository is an organization repository with the metadata shown in reports.
// The metadata never feeds into scoring.
type Repository struct {
	Owner         string         `json:"owner"`
	Name          string         `json:"name"`
	DefaultBranch string         `json:"default_branch"`
	Languages     map[string]int `json:"languages"`
	Stars         int            `json:"stars"`
	Forks         int            `json:"forks"`
	PushedAt      time.Time      `json:"pushed_at"`
}

// FullName returns "owner/name".
func (r Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

// SplitFullName splits "owner/name" into its parts.
func SplitFullName(fullName string) (owner, name string, ok bool) {
	owner, name, ok = strings.Cut(fullName, "/")
	if !ok || owner == "" || name == "" {
		return "", "", false
	}
	return owner, name, true
}

// Author is the raw identity attached to a commit by the backend.
// Login is empty when the backend could not link the commit to an account.
type Author struct {
	Login string `json:"login,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Commit is one logical commit. Branches holds every branch it was observed on.
type Commit struct {
	Repository   string    `json:"repository"`
	Branches     []string  `json:"branches"`
	SHA          string    `json:"sha"`
	Author       Author    `json:"author"`
	Identity     string    `json:"identity,omitempty"`
	AuthoredAt   time.Time `json:"authored_at"`
	Message      string    `json:"message"`
	Additions    int       `json:"additions"`
	Deletions    int       `json:"deletions"`
	ChangedFiles int       `json:"changed_files"`
	// HasStats is false when the backend listing carried no line counts.
	HasStats bool `json:"-"`
}

// Key identifies a logical commit across branch listings.
func (c Commit) Key() string {
	return c.Repository + "@" + c.SHA
}

// LinesChanged is additions plus deletions.
func (c Commit) LinesChanged() int {
	return c.Additions + c.Deletions
}

// Headline is the first line of the commit message.
func (c Commit) Headline() string {
	headline, _, _ := strings.Cut(c.Message, "\n")
	return strings.TrimSpace(headline)
}

// FilePatch is the diff of one file in a commit.
type FilePatch struct {
	Filename  string `json:"filename"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Patch     string `json:"patch,omitempty"`
}

// CommitDetail is the expensive per-commit diff information.
type CommitDetail struct {
	Additions    int         `json:"additions"`
	Deletions    int         `json:"deletions"`
	ChangedFiles int         `json:"changed_files"`
	Files        []FilePatch `json:"files"`
}

// ReviewRecord is a single submitted pull-request review.
type ReviewRecord struct {
	Repository  string    `json:"repository"`
	PullRequest int       `json:"pull_request"`
	Reviewer    string    `json:"reviewer"`
	SubmittedAt time.Time `json:"submitted_at"`
	State       string    `json:"state"`
}

// UserActivity is the canonical per-user record consumed by scoring and rendering.
type UserActivity struct {
	Identity      string   `json:"identity"`
	Member        bool     `json:"member"`
	Organizations []string `json:"organizations"`
	Commits       []Commit `json:"commits"`
	LinesChanged  int      `json:"lines_changed"`
	Repositories  []string `json:"repositories"`
	ReviewCount   int      `json:"review_count"`
	// UncountedCommits is how many commits carry no line counts and so add
	// nothing to LinesChanged.
	UncountedCommits int                     `json:"uncounted_commits"`
	Details          map[string]CommitDetail `json:"-"`
}

// NewUserActivity builds a UserActivity from deduplicated commits.
// Commits are ordered newest first and line totals are derived from them.
func NewUserActivity(identity, org string, member bool, commits []Commit, reviews int) UserActivity {
	ua := UserActivity{
		Identity:      identity,
		Member:        member,
		Organizations: []string{org},
		Commits:       append([]Commit{}, commits...),
		Repositories:  []string{},
		ReviewCount:   reviews,
	}
	SortCommits(ua.Commits)
	repos := make(map[string]struct{})
	for _, c := range ua.Commits {
		ua.LinesChanged += c.LinesChanged()
		repos[c.Repository] = struct{}{}
		if !c.HasStats {
			ua.UncountedCommits++
		}
	}
	ua.Repositories = SortedKeys(repos)
	return ua
}

// CommitCount is the number of distinct commits.
func (u UserActivity) CommitCount() int {
	return len(u.Commits)
}

// Active reports whether the user has any commits or reviews.
func (u UserActivity) Active() bool {
	return len(u.Commits) > 0 || u.ReviewCount > 0
}

// PartialLines reports whether LinesChanged leaves out some commits.
func (u UserActivity) PartialLines() bool {
	return u.UncountedCommits > 0
}

// Counters returns the observable counters the fallback heuristic works from.
func (u UserActivity) Counters() Counters {
	return Counters{
		Commits:      len(u.Commits),
		LinesChanged: u.LinesChanged,
		Repositories: len(u.Repositories),
		Reviews:      u.ReviewCount,
	}
}

// Counters are the directly observable activity numbers for one user.
type Counters struct {
	Commits      int `json:"commits"`
	LinesChanged int `json:"lines_changed"`
	Repositories int `json:"repositories"`
	Reviews      int `json:"reviews"`
}

// SortCommits orders commits newest first, breaking ties by key.
func SortCommits(commits []Commit) {
	sort.SliceStable(commits, func(i, j int) bool {
		if !commits[i].AuthoredAt.Equal(commits[j].AuthoredAt) {
			return commits[i].AuthoredAt.After(commits[j].AuthoredAt)
		}
		return commits[i].Key() < commits[j].Key()
	})
}

// SortedKeys returns the keys of a string set in ascending order.
func SortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
