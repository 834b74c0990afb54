package scoring

import (
	"testing"

	"github.com/naka-gawa/team-pulse/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReply(t *testing.T) {
	testCases := []struct {
		name        string
		reply       string
		expected    domain.ContributionScore
		expectError bool
	}{
		{
			name:  "plain JSON",
			reply: `{"code_volume": 6, "complexity": 5, "technical_depth": 7, "scope": 4, "review_contribution": 3, "summary": "Solid backend work."}`,
			expected: domain.ContributionScore{
				CodeVolume: 6, Complexity: 5, TechnicalDepth: 7, Scope: 4, ReviewContribution: 3,
				Total: 25, Summary: "Solid backend work.", Source: domain.SourceRemote,
			},
		},
		{
			name:  "JSON embedded in prose with a conflicting total",
			reply: "Here is the assessment:\n```json\n{\"code_volume\": 2, \"complexity\": 2, \"technical_depth\": 2, \"scope\": 2, \"review_contribution\": 2, \"total\": 49, \"summary\": \"ok\"}\n```",
			expected: domain.ContributionScore{
				CodeVolume: 2, Complexity: 2, TechnicalDepth: 2, Scope: 2, ReviewContribution: 2,
				Total: 10, Summary: "ok", Source: domain.SourceRemote,
			},
		},
		{
			name:  "fractional values are rounded",
			reply: `{"code_volume": 6.6, "complexity": 0, "technical_depth": 0, "scope": 0, "review_contribution": 0.4, "summary": ""}`,
			expected: domain.ContributionScore{
				CodeVolume: 7, Total: 7, Source: domain.SourceRemote,
			},
		},
		{name: "missing key", reply: `{"code_volume": 1, "complexity": 1, "technical_depth": 1, "scope": 1, "summary": "x"}`, expectError: true},
		{name: "missing summary", reply: `{"code_volume": 1, "complexity": 1, "technical_depth": 1, "scope": 1, "review_contribution": 1}`, expectError: true},
		{name: "value above scale", reply: `{"code_volume": 85, "complexity": 1, "technical_depth": 1, "scope": 1, "review_contribution": 1, "summary": "x"}`, expectError: true},
		{name: "negative value", reply: `{"code_volume": -1, "complexity": 1, "technical_depth": 1, "scope": 1, "review_contribution": 1, "summary": "x"}`, expectError: true},
		{name: "non-numeric value", reply: `{"code_volume": "high", "complexity": 1, "technical_depth": 1, "scope": 1, "review_contribution": 1, "summary": "x"}`, expectError: true},
		{name: "not JSON", reply: "I cannot score this user.", expectError: true},
		{name: "broken JSON", reply: `{"code_volume": 1,}`, expectError: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseReply(tc.reply)

			if tc.expectError {
				assert.ErrorIs(t, err, ErrMalformedReply)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestParseReply_OutOfRangeReportsClampedValue(t *testing.T) {
	_, err := ParseReply(`{"code_volume": 85, "complexity": 1, "technical_depth": 1, "scope": 1, "review_contribution": 1, "summary": "x"}`)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "clamped to 10")
}
