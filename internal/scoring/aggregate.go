package scoring

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"vishing-sim/backend/internal/ai"
	"vishing-sim/backend/internal/grounding"
	"vishing-sim/backend/internal/metrics"
	"vishing-sim/backend/internal/persona"
)

// Aggregator gates a request and combines both integrity judgments into one
// score.
type Aggregator struct {
	domainRole  *DomainRoleScorer
	requestRole *RequestRoleScorer
	examples    grounding.Source
	limit       int
}

// NewAggregator wires the two scorers and the grounding corpus. A limit of zero
// or less uses grounding.DefaultLimit.
func NewAggregator(oracle ai.Oracle, examples grounding.Source, limit int, m *metrics.Metrics) *Aggregator {
	if limit <= 0 {
		limit = grounding.DefaultLimit
	}
	return &Aggregator{
		domainRole:  NewDomainRoleScorer(oracle, m),
		requestRole: NewRequestRoleScorer(oracle, m),
		examples:    examples,
		limit:       limit,
	}
}

// Combine applies the fixed 0.3/0.7 weighting, rounded to two decimals.
func Combine(domainRole, requestRole float64) float64 {
	total := DomainRoleWeight*domainRole + RequestRoleWeight*requestRole
	return round2(clampFloat(total, minScore, maxScore))
}

// Aggregate scores one turn. An assessment with no classified category fails
// the gate and costs no oracle calls.
func (a *Aggregator) Aggregate(ctx context.Context, domain persona.Domain, assessment RequestAssessment, role, text string) IntegrityScore {
	if assessment.Empty() {
		return IntegrityScore{
			GatePassed: false,
			Level:      Level(0, false),
			Rationale:  RationaleInvalidRequest,
		}
	}

	dr, drReason := a.domainRole.Score(ctx, domain, role)

	var (
		rr       float64
		rrReason string
		category string
		assessed bool
	)
	if len(assessment.Critical) > 0 {
		category = assessment.Critical[0]
		rr, rrReason = a.requestRole.Score(ctx, role, category, domain, a.groundingExamples(ctx, domain))
		assessed = true
	} else {
		category = assessment.Normal[0]
		rr, rrReason = NeutralScore, RationaleNormalOnly
	}

	total := Combine(dr, rr)
	score := IntegrityScore{
		DomainRoleScore:     dr,
		RequestRoleScore:    rr,
		Total:               total,
		GatePassed:          true,
		Level:               Level(total, true),
		AssessedCategory:    category,
		RequestRoleAssessed: assessed,
		Rationale:           rationale(dr, drReason, rr, rrReason, total),
	}

	logrus.WithFields(logrus.Fields{
		"domain":       domain,
		"role":         role,
		"category":     category,
		"domain_role":  dr,
		"request_role": rr,
		"total":        total,
	}).Info("integrity score computed")
	return score
}

func (a *Aggregator) groundingExamples(ctx context.Context, domain persona.Domain) []grounding.Example {
	if a.examples == nil {
		return nil
	}
	rows, err := a.examples.Examples(ctx, string(domain), a.limit)
	if err != nil {
		logrus.WithError(err).WithField("domain", domain).Warn("grounding examples unavailable, scoring without them")
		return nil
	}
	return rows
}

func rationale(dr float64, drReason string, rr float64, rrReason string, total float64) string {
	parts := []string{
		fmt.Sprintf("Domain-role integrity %.1f/10: %s", dr, strings.TrimSpace(drReason)),
		fmt.Sprintf("Request-role integrity %.1f/10: %s", rr, strings.TrimSpace(rrReason)),
		fmt.Sprintf("Final integrity score: %.2f/10", total),
	}
	return strings.Join(parts, "\n")
}
