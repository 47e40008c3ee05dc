package scoring

import (
	"context"

	"github.com/sirupsen/logrus"

	"vishing-sim/backend/internal/ai"
	"vishing-sim/backend/internal/match"
	"vishing-sim/backend/internal/metrics"
	"vishing-sim/backend/internal/persona"
)

// RequestClassifier maps a caller's ask onto the domain vocabulary and splits
// it into critical and normal tiers.
type RequestClassifier struct {
	oracle   ai.Oracle
	personas *persona.Registry
	metrics  *metrics.Metrics
}

// NewRequestClassifier constructs a RequestClassifier.
func NewRequestClassifier(oracle ai.Oracle, personas *persona.Registry, m *metrics.Metrics) *RequestClassifier {
	return &RequestClassifier{oracle: oracle, personas: personas, metrics: m}
}

// Classify never fails: unknown domains, oracle errors and hallucinated
// categories all shrink the assessment instead.
func (c *RequestClassifier) Classify(ctx context.Context, text string, domain persona.Domain, history []ai.HistoryTurn) RequestAssessment {
	assessment := RequestAssessment{Domain: domain}
	p, err := c.personas.Lookup(domain)
	if err != nil {
		logrus.WithError(err).Warn("classify request for unknown domain")
		return assessment
	}

	judgment, err := c.oracle.ClassifyRequest(ctx, ai.ClassifyInput{
		Text:       text,
		Domain:     string(domain),
		Vocabulary: p.Vocabulary(),
		History:    history,
	})
	if err != nil {
		c.metrics.IncrementFallback(ai.JudgmentClassify)
		logrus.WithError(err).WithField("domain", domain).Warn("request classification failed, assuming nothing requested")
		return assessment
	}

	assessment.Requested = filterVocabulary(p, judgment.RequestedInfo)
	for _, key := range assessment.Requested {
		if !p.Offers(key) {
			continue
		}
		switch p.Tier(key) {
		case persona.TierCritical:
			assessment.Critical = append(assessment.Critical, key)
		case persona.TierNormal:
			assessment.Normal = append(assessment.Normal, key)
		}
	}

	logrus.WithFields(logrus.Fields{
		"domain":    domain,
		"proposed":  judgment.RequestedInfo,
		"requested": assessment.Requested,
		"critical":  assessment.Critical,
		"normal":    assessment.Normal,
	}).Info("classified request")
	return assessment
}

// filterVocabulary keeps only categories of p's vocabulary, in emission order.
func filterVocabulary(p *persona.Persona, proposed []string) []string {
	var out []string
	for _, key := range match.Categories(proposed) {
		if p.InVocabulary(key) {
			out = append(out, key)
		}
	}
	return out
}
