package scoring

import (
	"fmt"
	"strings"

	"github.com/naka-gawa/team-pulse/internal/domain"
)

// DefaultPromptCommits is the number of recent commits described to the service.
const DefaultPromptCommits = 10

const maxFilesPerCommit = 5

const instructions = `You are assessing one engineer's contributions over a recent time window.
Score each axis on a 0-10 integer scale:
- code_volume: amount of meaningful code changed
- complexity: difficulty of the changes
- technical_depth: depth of engineering across projects
- scope: breadth of the work
- review_contribution: participation in code review

Reply with a single JSON object and nothing else:
{"code_volume": 0, "complexity": 0, "technical_depth": 0, "scope": 0, "review_contribution": 0, "summary": "one or two sentences"}
`

// BuildPrompt describes a user's activity, sampling at most sample recent commits.
func BuildPrompt(activity domain.UserActivity, sample int) string {
	if sample <= 0 {
		sample = DefaultPromptCommits
	}
	var sb strings.Builder
	sb.WriteString(instructions)
	sb.WriteString("\n--- Activity ---\n")
	fmt.Fprintf(&sb, "User: %s\n", activity.Identity)
	fmt.Fprintf(&sb, "Organizations: %s\n", strings.Join(activity.Organizations, ", "))
	fmt.Fprintf(&sb, "Commits: %d\n", activity.CommitCount())
	fmt.Fprintf(&sb, "Lines changed: %d\n", activity.LinesChanged)
	fmt.Fprintf(&sb, "Repositories: %s\n", strings.Join(activity.Repositories, ", "))
	fmt.Fprintf(&sb, "Reviews submitted: %d\n", activity.ReviewCount)

	commits := activity.Commits
	if len(commits) > sample {
		commits = commits[:sample]
	}
	if len(commits) == 0 {
		return sb.String()
	}

	fmt.Fprintf(&sb, "\n--- %d most recent commits ---\n", len(commits))
	for _, c := range commits {
		fmt.Fprintf(&sb, "\n[%s %s] %s (+%d/-%d, %d files)\n",
			c.Repository, shortSHA(c.SHA), c.Headline(), c.Additions, c.Deletions, c.ChangedFiles)
		detail, ok := activity.Details[c.Key()]
		if !ok {
			continue
		}
		for i, f := range detail.Files {
			if i == maxFilesPerCommit {
				fmt.Fprintf(&sb, "... %d more files\n", len(detail.Files)-i)
				break
			}
			fmt.Fprintf(&sb, "File: %s (+%d/-%d)\n", f.Filename, f.Additions, f.Deletions)
			if f.Patch != "" {
				sb.WriteString(f.Patch)
				sb.WriteString("\n")
			}
		}
	}
	return sb.String()
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
