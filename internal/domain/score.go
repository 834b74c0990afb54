package domain

// MaxSubScore is the top of the fixed 0-10 sub-score scale.
const MaxSubScore = 10

// ScoreSource says which scorer produced a ContributionScore.
type ScoreSource string

const (
	SourceRemote   ScoreSource = "remote"
	SourceFallback ScoreSource = "fallback"
	SourceMixed    ScoreSource = "mixed"
)

// ContributionScore holds the five sub-scores and their derived total.
type ContributionScore struct {
	CodeVolume         int         `json:"code_volume"`
	Complexity         int         `json:"complexity"`
	TechnicalDepth     int         `json:"technical_depth"`
	Scope              int         `json:"scope"`
	ReviewContribution int         `json:"review_contribution"`
	Total              int         `json:"total"`
	Summary            string      `json:"summary"`
	Source             ScoreSource `json:"source"`
}

// Recompute sets Total to the sum of the five sub-scores and returns the score.
func (s ContributionScore) Recompute() ContributionScore {
	s.Total = s.CodeVolume + s.Complexity + s.TechnicalDepth + s.Scope + s.ReviewContribution
	return s
}

// Fallback reports whether any part of the score came from the local heuristic.
func (s ContributionScore) Fallback() bool {
	return s.Source == SourceFallback || s.Source == SourceMixed
}

// MaxScore merges two scores axis by axis, keeping the higher value on each.
func MaxScore(a, b ContributionScore) ContributionScore {
	merged := ContributionScore{
		CodeVolume:         max(a.CodeVolume, b.CodeVolume),
		Complexity:         max(a.Complexity, b.Complexity),
		TechnicalDepth:     max(a.TechnicalDepth, b.TechnicalDepth),
		Scope:              max(a.Scope, b.Scope),
		ReviewContribution: max(a.ReviewContribution, b.ReviewContribution),
		Source:             mergeSource(a.Source, b.Source),
	}
	switch {
	case a.Summary == "":
		merged.Summary = b.Summary
	case b.Summary == "" || a.Summary == b.Summary:
		merged.Summary = a.Summary
	default:
		merged.Summary = a.Summary + "\n" + b.Summary
	}
	return merged.Recompute()
}

func mergeSource(a, b ScoreSource) ScoreSource {
	switch {
	case a == "":
		return b
	case b == "" || a == b:
		return a
	default:
		return SourceMixed
	}
}
