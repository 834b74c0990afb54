package scoring

import (
	"context"

	"github.com/naka-gawa/team-pulse/internal/domain"
	"github.com/naka-gawa/team-pulse/internal/retry"
	"github.com/sirupsen/logrus"
)

// Scorer scores users remotely and falls back to the heuristic on any failure.
type Scorer struct {
	gateway       Gateway
	retry         *retry.Policy
	promptCommits int
	logger        logrus.FieldLogger
}

// NewScorer creates a Scorer. A nil gateway scores everyone with the fallback.
func NewScorer(gateway Gateway, policy *retry.Policy, promptCommits int, logger logrus.FieldLogger) *Scorer {
	return &Scorer{
		gateway:       gateway,
		retry:         policy,
		promptCommits: promptCommits,
		logger:        logger,
	}
}

// Score never fails: the returned score is always complete with a recomputed total.
func (s *Scorer) Score(ctx context.Context, activity domain.UserActivity) domain.ContributionScore {
	log := s.logger.WithField("user", activity.Identity)
	if s.gateway == nil || !activity.Active() {
		return Fallback(activity.Counters())
	}

	prompt := BuildPrompt(activity, s.promptCommits)
	reply, err := retry.Do(ctx, s.retry, "score "+activity.Identity, func(ctx context.Context) (string, error) {
		return s.gateway.Generate(ctx, prompt)
	})
	if err != nil {
		log.WithError(err).Warn("scoring service unavailable; using fallback heuristic")
		return Fallback(activity.Counters())
	}

	score, err := ParseReply(reply)
	if err != nil {
		log.WithError(err).Warn("invalid scoring reply; using fallback heuristic")
		return Fallback(activity.Counters())
	}
	log.Debugf("scored remotely: total %d", score.Total)
	return score
}
