// Package reconcile turns raw per-branch backend listings into deduplicated,
// identity-resolved activity.
package reconcile

import (
	"strings"
	"time"

	"github.com/naka-gawa/team-pulse/internal/domain"
)

// genericNames are automation display names shared by unrelated committers.
var genericNames = map[string]struct{}{
	"github":            {},
	"github action":     {},
	"github actions":    {},
	"github enterprise": {},
	"web-flow":          {},
}

// IsGenericName reports whether name is a known automation display name.
func IsGenericName(name string) bool {
	_, ok := genericNames[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// ResolveIdentity picks the identity key for an author: login, then name, then email.
// A generic automation name resolves to the email so bot commits from different
// sources only collapse when they share an address.
func ResolveIdentity(author domain.Author) string {
	login := strings.TrimSpace(author.Login)
	name := strings.TrimSpace(author.Name)
	email := strings.ToLower(strings.TrimSpace(author.Email))

	switch {
	case login != "":
		return login
	case name != "" && IsGenericName(name) && email != "":
		return email
	case name != "":
		return name
	default:
		return email
	}
}

// Dedupe collapses records sharing a repository and sha into one commit whose
// Branches is the sorted union of every branch it was seen on.
// Output order follows the first occurrence of each commit.
func Dedupe(raw []domain.Commit) []domain.Commit {
	index := make(map[string]int, len(raw))
	branches := make(map[string]map[string]struct{}, len(raw))
	out := make([]domain.Commit, 0, len(raw))

	for _, c := range raw {
		key := c.Key()
		i, seen := index[key]
		if !seen {
			i = len(out)
			index[key] = i
			out = append(out, c)
			branches[key] = make(map[string]struct{})
		} else if !out[i].HasStats && c.HasStats {
			out[i].Additions, out[i].Deletions, out[i].ChangedFiles = c.Additions, c.Deletions, c.ChangedFiles
			out[i].HasStats = true
		}
		if out[i].Author.Login == "" && c.Author.Login != "" {
			out[i].Author.Login = c.Author.Login
		}
		for _, b := range c.Branches {
			if b != "" {
				branches[key][b] = struct{}{}
			}
		}
	}

	for i := range out {
		out[i].Branches = domain.SortedKeys(branches[out[i].Key()])
	}
	return out
}

// GroupByIdentity resolves each commit's identity and groups commits per identity,
// newest first. Commits are expected to be deduplicated already.
func GroupByIdentity(commits []domain.Commit) map[string][]domain.Commit {
	grouped := make(map[string][]domain.Commit)
	for _, c := range commits {
		id := ResolveIdentity(c.Author)
		if id == "" {
			continue
		}
		c.Identity = id
		grouped[id] = append(grouped[id], c)
	}
	for id := range grouped {
		domain.SortCommits(grouped[id])
	}
	return grouped
}

// CountReviews counts submitted reviews per reviewer. Only a review's own submission
// time decides whether it falls in the window; the pull request's timestamps are ignored.
func CountReviews(records []domain.ReviewRecord, since time.Time) map[string]int {
	type reviewKey struct {
		repo     string
		pr       int
		reviewer string
		at       int64
	}
	seen := make(map[reviewKey]struct{}, len(records))
	counts := make(map[string]int)
	for _, r := range records {
		reviewer := strings.TrimSpace(r.Reviewer)
		if reviewer == "" || strings.EqualFold(r.State, "PENDING") {
			continue
		}
		if r.SubmittedAt.IsZero() || r.SubmittedAt.Before(since) {
			continue
		}
		key := reviewKey{repo: r.Repository, pr: r.PullRequest, reviewer: reviewer, at: r.SubmittedAt.UnixNano()}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		counts[reviewer]++
	}
	return counts
}

// Identities returns the sorted union of members, commit identities and reviewers.
func Identities(members []string, commits map[string][]domain.Commit, reviews map[string]int) []string {
	set := make(map[string]struct{}, len(members)+len(commits)+len(reviews))
	for _, m := range members {
		if m = strings.TrimSpace(m); m != "" {
			set[m] = struct{}{}
		}
	}
	for id := range commits {
		set[id] = struct{}{}
	}
	for id := range reviews {
		set[id] = struct{}{}
	}
	return domain.SortedKeys(set)
}
