package ai

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"vishing-sim/backend/internal/grounding"
)

// HistoryTurn is one prior exchange supplied to the oracle as read-only context.
type HistoryTurn struct {
	User  string `json:"user"`
	Agent string `json:"agent"`
}

// ClassifyInput asks which vocabulary categories a caller requested.
type ClassifyInput struct {
	Text       string
	Domain     string
	Vocabulary []string
	History    []HistoryTurn
}

// DomainRoleInput asks how plausible a role is inside a domain.
type DomainRoleInput struct {
	Domain string
	Role   string
}

// RequestRoleInput asks how plausible it is for a role to request a category.
type RequestRoleInput struct {
	Domain   string
	Role     string
	Category string
	Examples []grounding.Example
}

// RefusalInput drives the in-persona refusal reply.
type RefusalInput struct {
	PersonaName  string
	PersonaRole  string
	Organization string
	Score        float64
	Text         string
	History      []HistoryTurn
}

// CoachInput summarises a finished training conversation for coaching.
type CoachInput struct {
	Domain     string
	Score      float64
	Metrics    map[string]any
	Transcript []HistoryTurn
}

// RoleJudgment mirrors {"role": string}.
type RoleJudgment struct {
	Role string `json:"role"`
}

// RequestJudgment mirrors {"requested_info": [string]}.
type RequestJudgment struct {
	RequestedInfo []string `json:"requested_info"`
}

// ScoreJudgment is the shared shape of both integrity ratings. Score is nil
// when the oracle omitted it or sent something non-numeric.
type ScoreJudgment struct {
	Score     *float64
	Reasoning string
}

type domainRoleWire struct {
	IntegrityScore Number `json:"integrity_score"`
	Reasoning      string `json:"reasoning"`
}

type requestRoleWire struct {
	PredictedScore Number `json:"predicted_score"`
	Reasoning      string `json:"reasoning"`
}

// Coaching is the oracle's qualitative review of a trainee.
type Coaching struct {
	Strengths   []string `json:"strengths"`
	Weaknesses  []string `json:"weaknesses"`
	Suggestions []string `json:"suggestions"`
}

// Number accepts a JSON number or a numeric string ("7", "7.5/10").
type Number struct {
	Value *float64
}

// UnmarshalJSON implements json.Unmarshaler. Unparseable values leave Value nil.
func (n *Number) UnmarshalJSON(data []byte) error {
	n.Value = nil
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		n.set(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "/"); idx > 0 {
		s = strings.TrimSpace(s[:idx])
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		n.set(f)
	}
	return nil
}

func (n *Number) set(f float64) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return
	}
	n.Value = &f
}
