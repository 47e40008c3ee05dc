package scoring

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"vishing-sim/backend/internal/ai"
	"vishing-sim/backend/internal/grounding"
	"vishing-sim/backend/internal/metrics"
	"vishing-sim/backend/internal/persona"
)

// DomainRoleScorer rates how plausible a role is within a domain, regardless of
// what is being asked.
type DomainRoleScorer struct {
	oracle  ai.Oracle
	metrics *metrics.Metrics
}

// NewDomainRoleScorer constructs a DomainRoleScorer.
func NewDomainRoleScorer(oracle ai.Oracle, m *metrics.Metrics) *DomainRoleScorer {
	return &DomainRoleScorer{oracle: oracle, metrics: m}
}

// Score always consults the oracle, including for an empty role.
func (s *DomainRoleScorer) Score(ctx context.Context, domain persona.Domain, role string) (float64, string) {
	judgment, err := s.oracle.ScoreDomainRole(ctx, ai.DomainRoleInput{Domain: string(domain), Role: role})
	if err != nil {
		s.metrics.IncrementFallback(ai.JudgmentDomainRole)
		logrus.WithError(err).WithFields(logrus.Fields{"domain": domain, "role": role}).Warn("domain-role scoring failed, using neutral score")
		return NeutralScore, "Domain-role assessment unavailable; neutral score applied."
	}
	score, ok := sanitizeScore(judgment.Score)
	if !ok {
		s.metrics.IncrementFallback(ai.JudgmentDomainRole)
		logrus.WithFields(logrus.Fields{"domain": domain, "role": role, "raw": judgment.Score}).Warn("domain-role score unusable, using neutral score")
		return score, fmt.Sprintf("Domain-role score unusable; neutral score applied. %s", judgment.Reasoning)
	}
	return score, judgment.Reasoning
}

// RequestRoleScorer rates how plausible it is for a role to request a specific
// category, calibrated with human-rated examples.
type RequestRoleScorer struct {
	oracle  ai.Oracle
	metrics *metrics.Metrics
}

// NewRequestRoleScorer constructs a RequestRoleScorer.
func NewRequestRoleScorer(oracle ai.Oracle, m *metrics.Metrics) *RequestRoleScorer {
	return &RequestRoleScorer{oracle: oracle, metrics: m}
}

// ErrUnusableScore reports an oracle reply whose score is missing, non-numeric
// or out of range.
var ErrUnusableScore = errors.New("unusable oracle score")

// Score asks the oracle for the request-role fit of one category. Failures
// fall back to the neutral score.
func (s *RequestRoleScorer) Score(ctx context.Context, role, category string, domain persona.Domain, examples []grounding.Example) (float64, string) {
	fields := logrus.Fields{"domain": domain, "role": role, "category": category}
	score, reasoning, err := s.assess(ctx, role, category, domain, examples)
	switch {
	case errors.Is(err, ErrUnusableScore):
		s.metrics.IncrementFallback(ai.JudgmentRequestRole)
		logrus.WithFields(fields).Warn("request-role score unusable, using neutral score")
		return NeutralScore, fmt.Sprintf("Request-role score unusable; neutral score applied. %s", reasoning)
	case err != nil:
		s.metrics.IncrementFallback(ai.JudgmentRequestRole)
		logrus.WithError(err).WithFields(fields).Warn("request-role scoring failed, using neutral score")
		return NeutralScore, fmt.Sprintf("Error: %v", err)
	}
	return score, reasoning
}

// assess returns the oracle's own prediction, or an error when there is none.
func (s *RequestRoleScorer) assess(ctx context.Context, role, category string, domain persona.Domain, examples []grounding.Example) (float64, string, error) {
	judgment, err := s.oracle.ScoreRequestRole(ctx, ai.RequestRoleInput{
		Domain:   string(domain),
		Role:     role,
		Category: category,
		Examples: examples,
	})
	if err != nil {
		return 0, "", err
	}
	score, ok := sanitizeScore(judgment.Score)
	if !ok {
		return 0, judgment.Reasoning, ErrUnusableScore
	}
	return score, judgment.Reasoning, nil
}
