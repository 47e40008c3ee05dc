package scoring

import (
	"context"

	"github.com/sirupsen/logrus"

	"vishing-sim/backend/internal/ai"
	"vishing-sim/backend/internal/match"
	"vishing-sim/backend/internal/metrics"
)

// RoleExtractor pulls an explicitly self-declared role out of free text.
type RoleExtractor struct {
	oracle  ai.Oracle
	metrics *metrics.Metrics
}

// NewRoleExtractor constructs a RoleExtractor.
func NewRoleExtractor(oracle ai.Oracle, m *metrics.Metrics) *RoleExtractor {
	return &RoleExtractor{oracle: oracle, metrics: m}
}

// Extract returns the verbatim role, or an empty claim when none was stated or
// the oracle failed.
func (r *RoleExtractor) Extract(ctx context.Context, text string) RoleClaim {
	if r == nil || r.oracle == nil {
		return RoleClaim{Fallback: true}
	}
	judgment, err := r.oracle.ExtractRole(ctx, text)
	if err != nil {
		r.metrics.IncrementFallback(ai.JudgmentRole)
		logrus.WithError(err).WithField("input", match.Preview(text, 50)).Warn("role extraction failed, assuming no role")
		return RoleClaim{Fallback: true}
	}
	role := match.Role(judgment.Role)
	logrus.WithFields(logrus.Fields{
		"role":  role,
		"input": match.Preview(text, 50),
	}).Info("extracted role")
	return RoleClaim{Role: role}
}
