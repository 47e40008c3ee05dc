package scoring

import (
	"math"

	"vishing-sim/backend/internal/persona"
)

const (
	// NeutralScore is the fallback for any score the oracle could not supply.
	NeutralScore = 5.0
	// DisclosureThreshold must be strictly exceeded for anything to be revealed.
	DisclosureThreshold = 5.0

	DomainRoleWeight  = 0.3
	RequestRoleWeight = 0.7

	minScore = 0.0
	maxScore = 10.0
)

const (
	RationaleInvalidRequest = "Request invalid for domain."
	RationaleNormalOnly     = "Only normal info requested, request-role integrity neutral (normal, not specifically assessed)."
)

// RoleClaim is the role a caller explicitly declared in one utterance.
type RoleClaim struct {
	Role string `json:"role"`
	// Fallback is set when the oracle failed and the empty role was assumed.
	Fallback bool `json:"fallback,omitempty"`
}

// RequestAssessment is the validated view of what a caller asked for.
type RequestAssessment struct {
	Domain    persona.Domain `json:"domain"`
	Requested []string       `json:"requested_info"`
	Critical  []string       `json:"will_reveal_critical"`
	Normal    []string       `json:"will_reveal_normal"`
}

// Empty reports whether no category survived classification.
func (a RequestAssessment) Empty() bool {
	return len(a.Critical) == 0 && len(a.Normal) == 0
}

// Classified returns the critical and normal categories in request order.
func (a RequestAssessment) Classified() []string {
	tiered := make(map[string]struct{}, len(a.Critical)+len(a.Normal))
	for _, c := range a.Critical {
		tiered[c] = struct{}{}
	}
	for _, c := range a.Normal {
		tiered[c] = struct{}{}
	}
	out := make([]string, 0, len(tiered))
	for _, c := range a.Requested {
		if _, ok := tiered[c]; ok {
			out = append(out, c)
			delete(tiered, c)
		}
	}
	return out
}

// IntegrityScore is the combined contextual-integrity judgment for one turn.
type IntegrityScore struct {
	DomainRoleScore  float64 `json:"domain_role_score"`
	RequestRoleScore float64 `json:"request_role_score"`
	Total            float64 `json:"total_integrity_score"`
	GatePassed       bool    `json:"gate_passed"`
	Level            string  `json:"integrity_level"`
	// AssessedCategory is the category the request-role judgment looked at, or
	// the first normal category when none was critical.
	AssessedCategory    string `json:"assessed_category,omitempty"`
	RequestRoleAssessed bool   `json:"request_role_assessed"`
	Rationale           string `json:"rationale"`
}

// Disclosure is one category resolved to the literal the persona discloses.
type Disclosure struct {
	Category string `json:"category"`
	Value    string `json:"value"`
}

// DisclosureDecision is what the persona will actually say this turn.
type DisclosureDecision struct {
	Reveal   []Disclosure `json:"reveal"`
	Withheld []string     `json:"withheld"`
	// Placeholders holds validated categories the persona had no value for.
	// They are never part of Reveal.
	Placeholders []Disclosure `json:"placeholders,omitempty"`
	// Refuse tells the caller to answer with a generic in-persona refusal.
	Refuse bool `json:"refuse"`
}

// Categories returns the revealed category keys in order.
func (d DisclosureDecision) Categories() []string {
	out := make([]string, 0, len(d.Reveal))
	for _, r := range d.Reveal {
		out = append(out, r.Category)
	}
	return out
}

// Level maps a total onto the rubric bands used in rationales.
func Level(total float64, gatePassed bool) string {
	switch {
	case !gatePassed || total < 3:
		return "Very Low"
	case total < 5:
		return "Low"
	case total < 7:
		return "Moderate"
	default:
		return "High"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// sanitizeScore accepts in-range numeric scores and maps everything else to
// NeutralScore. The bool reports whether the raw value was usable.
func sanitizeScore(raw *float64) (float64, bool) {
	if raw == nil {
		return NeutralScore, false
	}
	v := *raw
	if math.IsNaN(v) || math.IsInf(v, 0) || v < minScore || v > maxScore {
		return NeutralScore, false
	}
	return clampFloat(v, minScore, maxScore), true
}

func clampFloat(value, min, max float64) float64 {
	if math.IsNaN(value) {
		return min
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
