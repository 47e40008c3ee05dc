// Package feedback grades a trainee's finished conversation.
package feedback

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"

	"vishing-sim/backend/internal/ai"
)

const (
	TrendIncrement = "increment"
	TrendDecrement = "decrement"
	TrendNeutral   = "neutral"
)

// Turn is the part of a processed turn that grading looks at.
type Turn struct {
	UserInput     string
	AgentResponse string
	Score         float64
	Revealed      []string
	// Breach marks a turn that revealed at least one critical category.
	Breach bool
}

// Metrics are deterministic statistics over a conversation.
type Metrics struct {
	Turns          int     `json:"turns"`
	TrustIncreases int     `json:"trust_increases"`
	TrustDecreases int     `json:"trust_decreases"`
	InfoRevealed   int     `json:"info_revealed"`
	InfoRatio      float64 `json:"info_ratio"`
	Breaches       int     `json:"breaches"`
	PhaseTrend     string  `json:"phase_trend"`
}

// Report is the graded outcome of a conversation.
type Report struct {
	Domain   string       `json:"domain"`
	Score    float64      `json:"score"`
	Metrics  Metrics      `json:"metrics"`
	Scores   []float64    `json:"trust_scores"`
	Coaching *ai.Coaching `json:"coaching,omitempty"`
}

// Compute derives conversation metrics from turns in order.
func Compute(turns []Turn) Metrics {
	m := Metrics{Turns: len(turns), PhaseTrend: TrendNeutral}
	for i, t := range turns {
		m.InfoRevealed += len(t.Revealed)
		if t.Breach {
			m.Breaches++
		}
		if i == 0 {
			continue
		}
		switch prev := turns[i-1].Score; {
		case t.Score > prev:
			m.TrustIncreases++
		case t.Score < prev:
			m.TrustDecreases++
		}
	}
	m.InfoRatio = float64(m.InfoRevealed) / float64(max(1, len(turns)))
	if len(turns) > 0 {
		first, last := turns[0].Score, turns[len(turns)-1].Score
		switch {
		case last > first:
			m.PhaseTrend = TrendIncrement
		case last < first:
			m.PhaseTrend = TrendDecrement
		}
	}
	return m
}

// Score grades metrics on a 0-10 scale: breaches and leaked information cost
// points, building trust earns a little.
func Score(m Metrics) float64 {
	score := 10 - 1.5*float64(m.Breaches) - 2*m.InfoRatio + 0.2*float64(m.TrustIncreases)
	score = math.Round(score*10) / 10
	return math.Max(0, math.Min(10, score))
}

// Evaluator grades conversations and, when an oracle is available, adds
// coaching notes.
type Evaluator struct {
	oracle ai.Oracle
}

// NewEvaluator constructs an Evaluator. oracle may be nil.
func NewEvaluator(oracle ai.Oracle) *Evaluator {
	return &Evaluator{oracle: oracle}
}

// Evaluate grades turns. Coaching failures leave Coaching nil.
func (e *Evaluator) Evaluate(ctx context.Context, domain string, turns []Turn) Report {
	metrics := Compute(turns)
	report := Report{
		Domain:  domain,
		Score:   Score(metrics),
		Metrics: metrics,
		Scores:  make([]float64, 0, len(turns)),
	}
	transcript := make([]ai.HistoryTurn, 0, len(turns))
	for _, t := range turns {
		report.Scores = append(report.Scores, t.Score)
		transcript = append(transcript, ai.HistoryTurn{User: t.UserInput, Agent: t.AgentResponse})
	}

	if e == nil || e.oracle == nil || !e.oracle.Enabled() || len(turns) == 0 {
		return report
	}
	coaching, err := e.oracle.Coach(ctx, ai.CoachInput{
		Domain: domain,
		Score:  report.Score,
		Metrics: map[string]any{
			"trust_increases": metrics.TrustIncreases,
			"trust_decreases": metrics.TrustDecreases,
			"info_revealed":   metrics.InfoRevealed,
			"info_ratio":      metrics.InfoRatio,
			"breaches":        metrics.Breaches,
			"phase_trend":     metrics.PhaseTrend,
		},
		Transcript: transcript,
	})
	if err != nil {
		logrus.WithError(err).WithField("domain", domain).Warn("coaching unavailable")
		return report
	}
	report.Coaching = &coaching
	return report
}
