package reconcile

import (
	"fmt"
	"testing"
	"time"

	"github.com/naka-gawa/team-pulse/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cutoff = time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC)

func commit(repo, sha, branch string, author domain.Author) domain.Commit {
	return domain.Commit{
		Repository: repo,
		Branches:   []string{branch},
		SHA:        sha,
		Author:     author,
		AuthoredAt: cutoff.Add(time.Hour),
	}
}

func TestResolveIdentity(t *testing.T) {
	testCases := []struct {
		name     string
		author   domain.Author
		expected string
	}{
		{name: "login wins", author: domain.Author{Login: "alice", Name: "Alice A", Email: "alice@example.com"}, expected: "alice"},
		{name: "name when no login", author: domain.Author{Name: "Alice A", Email: "alice@example.com"}, expected: "Alice A"},
		{name: "email when name blank", author: domain.Author{Name: "   ", Email: "alice@example.com"}, expected: "alice@example.com"},
		{name: "email normalized", author: domain.Author{Email: " Alice@Example.com "}, expected: "alice@example.com"},
		{name: "generic name uses email", author: domain.Author{Name: "GitHub Action", Email: "action@github.com"}, expected: "action@github.com"},
		{name: "generic name is case insensitive", author: domain.Author{Name: "github", Email: "noreply@github.com"}, expected: "noreply@github.com"},
		{name: "generic name without email keeps name", author: domain.Author{Name: "GitHub"}, expected: "GitHub"},
		{name: "bot login is still a login", author: domain.Author{Login: "dependabot[bot]", Name: "GitHub"}, expected: "dependabot[bot]"},
		{name: "nothing", author: domain.Author{}, expected: ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ResolveIdentity(tc.author))
		})
	}
}

func TestDedupe_SameCommitOnTwoBranches(t *testing.T) {
	alice := domain.Author{Login: "alice"}
	main := commit("acme/api", "abc123", "main", alice)
	main.Additions, main.Deletions, main.HasStats = 120, 30, true
	feature := commit("acme/api", "abc123", "feature/x", alice)

	got := Dedupe([]domain.Commit{main, feature})

	require.Len(t, got, 1)
	assert.ElementsMatch(t, []string{"main", "feature/x"}, got[0].Branches)
	assert.Equal(t, 150, got[0].LinesChanged())
}

func TestDedupe_SingleRecordKeepsItsBranch(t *testing.T) {
	got := Dedupe([]domain.Commit{commit("acme/api", "abc123", "main", domain.Author{Login: "alice"})})

	require.Len(t, got, 1)
	assert.Equal(t, []string{"main"}, got[0].Branches)
}

func TestDedupe_RepeatedBranchListedOnce(t *testing.T) {
	alice := domain.Author{Login: "alice"}
	raw := []domain.Commit{
		commit("acme/api", "abc123", "main", alice),
		commit("acme/api", "abc123", "main", alice),
		commit("acme/api", "abc123", "", alice),
	}

	got := Dedupe(raw)

	require.Len(t, got, 1)
	assert.Equal(t, []string{"main"}, got[0].Branches)
}

func TestDedupe_CountsDistinctHashes(t *testing.T) {
	alice := domain.Author{Login: "alice"}
	branches := []string{"main", "dev", "release"}
	var raw []domain.Commit
	// 5 distinct hashes, each seen on every branch, plus the same sha in another repo.
	for i := 0; i < 5; i++ {
		for _, b := range branches {
			raw = append(raw, commit("acme/api", fmt.Sprintf("sha%d", i), b, alice))
		}
	}
	raw = append(raw, commit("acme/web", "sha0", "main", alice))

	got := Dedupe(raw)

	require.Len(t, got, 6)
	for _, c := range got {
		if c.Repository == "acme/api" {
			assert.Equal(t, []string{"dev", "main", "release"}, c.Branches)
		} else {
			assert.Equal(t, []string{"main"}, c.Branches)
		}
	}
}

func TestDedupe_FillsStatsAndLoginFromDuplicates(t *testing.T) {
	first := commit("acme/api", "abc", "main", domain.Author{Name: "Alice"})
	second := commit("acme/api", "abc", "dev", domain.Author{Login: "alice", Name: "Alice"})
	second.Additions, second.Deletions, second.ChangedFiles, second.HasStats = 5, 1, 2, true

	got := Dedupe([]domain.Commit{first, second})

	require.Len(t, got, 1)
	assert.True(t, got[0].HasStats)
	assert.Equal(t, 6, got[0].LinesChanged())
	assert.Equal(t, "alice", got[0].Author.Login)
}

func TestGroupByIdentity(t *testing.T) {
	bot1 := commit("acme/api", "b1", "main", domain.Author{Name: "GitHub Action", Email: "bot-one@example.com"})
	bot2 := commit("acme/web", "b2", "main", domain.Author{Name: "GitHub Action", Email: "bot-two@example.com"})
	older := commit("acme/api", "a1", "main", domain.Author{Login: "alice"})
	newer := commit("acme/web", "a2", "main", domain.Author{Login: "alice"})
	newer.AuthoredAt = older.AuthoredAt.Add(time.Hour)
	anonymous := commit("acme/api", "x", "main", domain.Author{})

	grouped := GroupByIdentity([]domain.Commit{bot1, bot2, older, newer, anonymous})

	assert.Len(t, grouped, 3)
	require.Len(t, grouped["alice"], 2)
	assert.Equal(t, "a2", grouped["alice"][0].SHA)
	assert.Equal(t, "alice", grouped["alice"][0].Identity)
	assert.Len(t, grouped["bot-one@example.com"], 1)
	assert.Len(t, grouped["bot-two@example.com"], 1)
}

func TestCountReviews(t *testing.T) {
	at := cutoff.Add(2 * time.Hour)
	records := []domain.ReviewRecord{
		{Repository: "acme/api", PullRequest: 1, Reviewer: "bob", SubmittedAt: at, State: "APPROVED"},
		// Same review seen twice through overlapping listings.
		{Repository: "acme/api", PullRequest: 1, Reviewer: "bob", SubmittedAt: at, State: "APPROVED"},
		{Repository: "acme/api", PullRequest: 2, Reviewer: "bob", SubmittedAt: at.Add(time.Minute), State: "COMMENTED"},
		{Repository: "acme/api", PullRequest: 3, Reviewer: "bob", SubmittedAt: cutoff.Add(-time.Minute), State: "APPROVED"},
		{Repository: "acme/api", PullRequest: 3, Reviewer: "carol", SubmittedAt: cutoff, State: "CHANGES_REQUESTED"},
		{Repository: "acme/api", PullRequest: 4, Reviewer: "carol", State: "PENDING"},
		{Repository: "acme/api", PullRequest: 4, Reviewer: "", SubmittedAt: at, State: "APPROVED"},
	}

	assert.Equal(t, map[string]int{"bob": 2, "carol": 1}, CountReviews(records, cutoff))
}

func TestIdentities(t *testing.T) {
	commits := map[string][]domain.Commit{"alice": nil, "ghost@example.com": nil}
	reviews := map[string]int{"bob": 1, "alice": 2}

	got := Identities([]string{"carol", "alice", " "}, commits, reviews)

	assert.Equal(t, []string{"alice", "bob", "carol", "ghost@example.com"}, got)
}
