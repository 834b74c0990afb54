package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/naka-gawa/team-pulse/internal/domain"
)

// ErrMalformedReply wraps every reason a reply cannot be used as a score.
var ErrMalformedReply = errors.New("malformed scoring reply")

var scoreKeys = []string{"code_volume", "complexity", "technical_depth", "scope", "review_contribution"}

// ParseReply extracts the outermost JSON object from text and validates it.
// Any total field in the reply is ignored; the total is recomputed.
func ParseReply(text string) (domain.ContributionScore, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return domain.ContributionScore{}, fmt.Errorf("%w: no JSON object found", ErrMalformedReply)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text[start:end+1]), &fields); err != nil {
		return domain.ContributionScore{}, fmt.Errorf("%w: %w", ErrMalformedReply, err)
	}

	values := make(map[string]int, len(scoreKeys))
	for _, key := range scoreKeys {
		raw, ok := fields[key]
		if !ok {
			return domain.ContributionScore{}, fmt.Errorf("%w: missing %q", ErrMalformedReply, key)
		}
		v, err := subScore(key, raw)
		if err != nil {
			return domain.ContributionScore{}, err
		}
		values[key] = v
	}

	raw, ok := fields["summary"]
	if !ok {
		return domain.ContributionScore{}, fmt.Errorf("%w: missing %q", ErrMalformedReply, "summary")
	}
	var summary string
	if err := json.Unmarshal(raw, &summary); err != nil {
		return domain.ContributionScore{}, fmt.Errorf("%w: summary is not a string", ErrMalformedReply)
	}

	return domain.ContributionScore{
		CodeVolume:         values["code_volume"],
		Complexity:         values["complexity"],
		TechnicalDepth:     values["technical_depth"],
		Scope:              values["scope"],
		ReviewContribution: values["review_contribution"],
		Summary:            strings.TrimSpace(summary),
		Source:             domain.SourceRemote,
	}.Recompute(), nil
}

// subScore decodes one 0-10 value. Out-of-range values are rejected, and the
// error carries the clamped value for the log.
func subScore(key string, raw json.RawMessage) (int, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("%w: %s is not a number: %s", ErrMalformedReply, key, string(raw))
	}
	if math.IsNaN(f) || f < 0 || f > domain.MaxSubScore {
		clamped := math.Max(0, math.Min(f, domain.MaxSubScore))
		return 0, fmt.Errorf("%w: %s=%g out of range 0-%d (clamped to %g)",
			ErrMalformedReply, key, f, domain.MaxSubScore, clamped)
	}
	return int(math.Round(f)), nil
}
