package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"vishing-sim/backend/internal/ai"
	"vishing-sim/backend/internal/persona"
)

// GenericRefusal is used whenever a tailored refusal cannot be produced. It is
// the same text a deliberate refusal may use, so failures are not observable.
const GenericRefusal = "I'm sorry, I cannot provide that information at this time. Please verify your identity through our official channels."

var disclosurePhrases = map[string]string{
	"otp":             "Your OTP is %s.",
	"account_number":  "Your account number is %s.",
	"account_balance": "Your account balance is %s.",
	"credit_card":     "Your credit card number is %s.",
	"ssn":             "Your SSN is %s.",
	"name":            "The name on file is %s.",
	"phone":           "The phone number is %s.",
	"email":           "The email address is %s.",
}

func (p *Pipeline) respond(ctx context.Context, pers *persona.Persona, result TurnResult, history []ai.HistoryTurn) string {
	if !result.Decision.Refuse && (len(result.Decision.Reveal) > 0 || len(result.Decision.Placeholders) > 0) {
		values := make(map[string]string, len(result.Decision.Reveal)+len(result.Decision.Placeholders))
		for _, d := range result.Decision.Reveal {
			values[d.Category] = d.Value
		}
		for _, d := range result.Decision.Placeholders {
			values[d.Category] = d.Value
		}
		return renderDisclosure(pers, result.Assessment.Classified(), values)
	}
	return p.refuse(ctx, pers, result, history)
}

// renderDisclosure builds the reply deterministically so the persona never
// says more or less than the decision allows.
func renderDisclosure(pers *persona.Persona, order []string, values map[string]string) string {
	parts := []string{fmt.Sprintf("Hello, I'm %s.", strings.TrimSuffix(describePersona(pers), "."))}
	for _, key := range order {
		value, ok := values[key]
		if !ok {
			continue
		}
		if phrase, ok := disclosurePhrases[key]; ok {
			parts = append(parts, fmt.Sprintf(phrase, value))
			continue
		}
		parts = append(parts, fmt.Sprintf("The %s is %s.", strings.ReplaceAll(key, "_", " "), value))
	}
	return strings.Join(parts, " ")
}

func (p *Pipeline) refuse(ctx context.Context, pers *persona.Persona, result TurnResult, history []ai.HistoryTurn) string {
	if p.oracle == nil || !p.oracle.Enabled() {
		return GenericRefusal
	}
	reply, err := p.oracle.Refuse(ctx, ai.RefusalInput{
		PersonaName:  pers.Name,
		PersonaRole:  pers.Role,
		Organization: pers.Organization,
		Score:        result.Integrity.Total,
		Text:         result.Input,
		History:      history,
	})
	reply = strings.TrimSpace(reply)
	if err != nil || reply == "" {
		p.metrics.IncrementFallback(ai.JudgmentRefusal)
		logrus.WithError(err).WithField("domain", pers.Domain).Warn("refusal generation failed, using generic refusal")
		return GenericRefusal
	}
	if leaks(reply, pers) {
		logrus.WithField("domain", pers.Domain).Warn("refusal mentioned a persona value, using generic refusal")
		return GenericRefusal
	}
	return reply
}

// leaks reports whether text quotes any sensitive persona value verbatim.
func leaks(text string, pers *persona.Persona) bool {
	for _, key := range pers.CriticalCategories() {
		value, ok := pers.Value(key)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		if strings.Contains(text, value) {
			return true
		}
	}
	return false
}
