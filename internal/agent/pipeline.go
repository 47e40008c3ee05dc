// Package agent runs one caller utterance through the contextual-integrity
// pipeline and renders the persona's reply.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"vishing-sim/backend/internal/ai"
	"vishing-sim/backend/internal/grounding"
	"vishing-sim/backend/internal/metrics"
	"vishing-sim/backend/internal/persona"
	"vishing-sim/backend/internal/scoring"
	"vishing-sim/backend/internal/util"
)

// ErrEmptyInput is returned for utterances with no text.
var ErrEmptyInput = errors.New("empty caller input")

// Turn outcomes, also used as metric labels.
const (
	OutcomeGated     = "gated"
	OutcomeRefused   = "refused"
	OutcomeDisclosed = "disclosed"
)

// Options tunes a Pipeline.
type Options struct {
	GroundingLimit int
	Metrics        *metrics.Metrics
}

// Pipeline is safe for concurrent use; it keeps no per-turn state.
type Pipeline struct {
	personas   *persona.Registry
	oracle     ai.Oracle
	roles      *scoring.RoleExtractor
	classifier *scoring.RequestClassifier
	aggregator *scoring.Aggregator
	metrics    *metrics.Metrics
}

// New wires the pipeline components around one oracle.
func New(personas *persona.Registry, oracle ai.Oracle, examples grounding.Source, opts Options) *Pipeline {
	return &Pipeline{
		personas:   personas,
		oracle:     oracle,
		roles:      scoring.NewRoleExtractor(oracle, opts.Metrics),
		classifier: scoring.NewRequestClassifier(oracle, personas, opts.Metrics),
		aggregator: scoring.NewAggregator(oracle, examples, opts.GroundingLimit, opts.Metrics),
		metrics:    opts.Metrics,
	}
}

// Personas exposes the registry the pipeline answers with.
func (p *Pipeline) Personas() *persona.Registry {
	return p.personas
}

// TurnResult is everything one processed utterance produced.
type TurnResult struct {
	Domain           persona.Domain             `json:"domain"`
	Input            string                     `json:"user_input"`
	Role             string                     `json:"user_role"`
	RequestedInfo    []string                   `json:"requested_info"`
	Assessment       scoring.RequestAssessment  `json:"assessment"`
	Integrity        scoring.IntegrityScore     `json:"integrity"`
	Decision         scoring.DisclosureDecision `json:"decision"`
	InfoToReveal     []string                   `json:"info_to_reveal"`
	Response         string                     `json:"agent_response"`
	RationaleLog     []string                   `json:"analysis_log"`
	Outcome          string                     `json:"outcome"`
	ProcessingTimeMs int64                      `json:"processing_time_ms"`
}

// Score is the turn's total integrity score.
func (r TurnResult) Score() float64 {
	return r.Integrity.Total
}

// Summary renders the one-line analysis summary of a turn.
func (r TurnResult) Summary() string {
	parts := []string{
		"Domain: " + string(r.Domain),
		"User Role: " + orNone(r.Role),
		"Integrity Score: " + FormatScore(r.Integrity.Total) + "/10",
		"Requested Info: " + joinOrNone(r.RequestedInfo),
		"Will Reveal: " + joinOrNone(r.InfoToReveal),
		"Agent Response: " + r.Response,
	}
	return strings.Join(parts, " | ")
}

// Process runs one utterance through role extraction, classification, scoring
// and disclosure. Only boundary validation fails; oracle trouble degrades to
// fallbacks and a refusal.
func (p *Pipeline) Process(ctx context.Context, text, domain string, history []ai.HistoryTurn) (TurnResult, error) {
	timer := util.StartTimer()
	text = strings.TrimSpace(text)
	if text == "" {
		return TurnResult{}, ErrEmptyInput
	}
	d, err := persona.ParseDomain(domain)
	if err != nil {
		return TurnResult{}, err
	}
	pers, err := p.personas.Lookup(d)
	if err != nil {
		return TurnResult{}, err
	}

	result := TurnResult{Domain: d, Input: text}

	claim := p.roles.Extract(ctx, text)
	result.Role = claim.Role
	result.RationaleLog = append(result.RationaleLog, "Extracted Role: "+orNone(claim.Role))

	result.Assessment = p.classifier.Classify(ctx, text, d, history)
	result.RequestedInfo = nonNil(result.Assessment.Requested)
	result.RationaleLog = append(result.RationaleLog, "Requested Info: "+joinOrNone(result.RequestedInfo))

	result.Integrity = p.aggregator.Aggregate(ctx, d, result.Assessment, claim.Role, text)
	result.RationaleLog = append(result.RationaleLog, "Integrity Score: "+FormatScore(result.Integrity.Total)+"/10")

	result.Decision = scoring.Decide(result.Integrity, result.Assessment, pers)
	result.InfoToReveal = result.Decision.Categories()
	result.Response = p.respond(ctx, pers, result, history)
	result.RationaleLog = append(result.RationaleLog, "Agent Response: "+result.Response)

	switch {
	case !result.Integrity.GatePassed:
		result.Outcome = OutcomeGated
	case result.Decision.Refuse:
		result.Outcome = OutcomeRefused
	default:
		result.Outcome = OutcomeDisclosed
	}

	elapsed := timer.Elapsed()
	result.ProcessingTimeMs = elapsed.Milliseconds()
	p.metrics.ObserveTurn(string(d), result.Outcome, result.Integrity.Total, elapsed)

	logrus.WithFields(logrus.Fields{
		"domain":        d,
		"role":          claim.Role,
		"requested":     result.RequestedInfo,
		"revealed":      result.InfoToReveal,
		"score":         result.Integrity.Total,
		"outcome":       result.Outcome,
		"processing_ms": result.ProcessingTimeMs,
	}).Info("turn processed")
	return result, nil
}

// FormatScore prints a score without trailing zeros.
func FormatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "None"
	}
	return s
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, ", ")
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func describePersona(p *persona.Persona) string {
	return fmt.Sprintf("%s, %s at %s", p.Name, p.Role, p.Organization)
}
