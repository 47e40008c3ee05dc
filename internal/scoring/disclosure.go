package scoring

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"vishing-sim/backend/internal/persona"
)

// Decide turns a score into what the persona may say. Everything classified is
// revealed iff the total strictly exceeds DisclosureThreshold; otherwise nothing
// is and the caller renders a refusal.
func Decide(score IntegrityScore, assessment RequestAssessment, p *persona.Persona) DisclosureDecision {
	classified := assessment.Classified()
	if !score.GatePassed || score.Total <= DisclosureThreshold || p == nil {
		return DisclosureDecision{
			Reveal:   []Disclosure{},
			Withheld: withheld(assessment.Requested, nil),
			Refuse:   true,
		}
	}

	decision := DisclosureDecision{Reveal: make([]Disclosure, 0, len(classified))}
	for _, key := range classified {
		value, ok := p.Value(key)
		if !ok || strings.TrimSpace(value) == "" {
			logrus.WithFields(logrus.Fields{
				"domain":   p.Domain,
				"category": key,
			}).Warn("persona has no value for classified category, using placeholder")
			decision.Placeholders = append(decision.Placeholders, Disclosure{Category: key, Value: Placeholder(key)})
			continue
		}
		decision.Reveal = append(decision.Reveal, Disclosure{Category: key, Value: value})
	}
	decision.Withheld = withheld(assessment.Requested, decision.Reveal)
	return decision
}

// Placeholder is the marker rendered for a category the persona cannot fill.
func Placeholder(key string) string {
	return fmt.Sprintf("<%s_VALUE>", strings.ToUpper(key))
}

func withheld(requested []string, revealed []Disclosure) []string {
	shown := make(map[string]struct{}, len(revealed))
	for _, r := range revealed {
		shown[r.Category] = struct{}{}
	}
	out := []string{}
	for _, key := range requested {
		if _, ok := shown[key]; !ok {
			out = append(out, key)
		}
	}
	return out
}
