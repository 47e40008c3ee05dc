package api

import (
	"time"

	"vishing-sim/backend/internal/ai"
	"vishing-sim/backend/internal/persona"
	"vishing-sim/backend/internal/store"
)

// ProcessRequest is a stateless single-turn evaluation.
type ProcessRequest struct {
	Text    string           `json:"text"`
	Domain  string           `json:"domain"`
	History []ai.HistoryTurn `json:"history"`
}

// CreateSessionRequest starts a training conversation.
type CreateSessionRequest struct {
	Domain  string `json:"domain"`
	Trainee string `json:"trainee"`
}

// TurnRequest is one trainee utterance inside a session.
type TurnRequest struct {
	Text string `json:"text"`
}

// SessionDTO is the API representation of a session.
type SessionDTO struct {
	ID        string    `json:"id"`
	Domain    string    `json:"domain"`
	Trainee   string    `json:"trainee"`
	TurnCount int       `json:"turn_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionListResponse holds sessions and totals.
type SessionListResponse struct {
	Items []SessionDTO `json:"items"`
	Total int64        `json:"total"`
}

// TurnDTO is the API representation of a persisted turn.
type TurnDTO struct {
	ID               uint      `json:"id"`
	SessionID        string    `json:"session_id"`
	Seq              int       `json:"seq"`
	UserInput        string    `json:"user_input"`
	AgentResponse    string    `json:"agent_response"`
	Role             string    `json:"user_role"`
	RequestedInfo    []string  `json:"requested_info"`
	InfoToReveal     []string  `json:"info_to_reveal"`
	Withheld         []string  `json:"withheld"`
	DomainRoleScore  float64   `json:"domain_role_score"`
	RequestRoleScore float64   `json:"request_role_score"`
	IntegrityScore   float64   `json:"integrity_score"`
	GatePassed       bool      `json:"gate_passed"`
	Breach           bool      `json:"breach"`
	Outcome          string    `json:"outcome"`
	Rationale        string    `json:"rationale"`
	AnalysisLog      []string  `json:"analysis_log"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	CreatedAt        time.Time `json:"created_at"`
}

// DomainDTO describes a domain's persona without any of its secrets.
type DomainDTO struct {
	Domain       string   `json:"domain"`
	PersonaName  string   `json:"persona_name"`
	PersonaRole  string   `json:"persona_role"`
	Organization string   `json:"organization"`
	Vocabulary   []string `json:"vocabulary"`
	Normal       []string `json:"normal"`
	Critical     []string `json:"critical"`
}

// FromSession converts a persisted session into its DTO.
func FromSession(s store.Session) SessionDTO {
	return SessionDTO{
		ID:        s.ID,
		Domain:    s.Domain,
		Trainee:   s.Trainee,
		TurnCount: s.TurnCount,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// FromTurn converts a persisted turn into its DTO.
func FromTurn(t store.Turn) TurnDTO {
	return TurnDTO{
		ID:               t.ID,
		SessionID:        t.SessionID,
		Seq:              t.Seq,
		UserInput:        t.UserInput,
		AgentResponse:    t.AgentResponse,
		Role:             t.Role,
		RequestedInfo:    nonNil(t.Requested()),
		InfoToReveal:     nonNil(t.Revealed()),
		Withheld:         nonNil(t.Withheld()),
		DomainRoleScore:  t.DomainRoleScore,
		RequestRoleScore: t.RequestRoleScore,
		IntegrityScore:   t.TotalScore,
		GatePassed:       t.GatePassed,
		Breach:           t.Breach,
		Outcome:          t.Outcome,
		Rationale:        t.Rationale,
		AnalysisLog:      nonNil(t.AnalysisLog()),
		ProcessingTimeMs: t.ProcessingTimeMs,
		CreatedAt:        t.CreatedAt,
	}
}

// FromPersona describes p for clients.
func FromPersona(p *persona.Persona) DomainDTO {
	return DomainDTO{
		Domain:       string(p.Domain),
		PersonaName:  p.Name,
		PersonaRole:  p.Role,
		Organization: p.Organization,
		Vocabulary:   p.Vocabulary(),
		Normal:       p.NormalCategories(),
		Critical:     p.CriticalCategories(),
	}
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
