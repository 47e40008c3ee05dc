package store

import (
	"encoding/json"
	"strings"
	"time"
)

// Session binds one trainee to one domain for the lifetime of a conversation.
type Session struct {
	ID        string `gorm:"primaryKey;size:36"`
	Domain    string `gorm:"size:32;index"`
	Trainee   string `gorm:"size:128;index"`
	TurnCount int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Turn is the audit record of one processed utterance.
type Turn struct {
	ID               uint   `gorm:"primaryKey"`
	SessionID        string `gorm:"size:36;index:idx_turn_session_seq,priority:1"`
	Seq              int    `gorm:"index:idx_turn_session_seq,priority:2"`
	UserInput        string `gorm:"type:text"`
	AgentResponse    string `gorm:"type:text"`
	Role             string `gorm:"size:255"`
	RequestedJSON    string `gorm:"type:text"`
	RevealedJSON     string `gorm:"type:text"`
	WithheldJSON     string `gorm:"type:text"`
	AnalysisLogJSON  string `gorm:"type:text"`
	DomainRoleScore  float64
	RequestRoleScore float64
	TotalScore       float64 `gorm:"index"`
	GatePassed       bool
	Breach           bool   `gorm:"index"`
	Outcome          string `gorm:"size:16;index"`
	Rationale        string `gorm:"type:text"`
	ProcessingTimeMs int64
	CreatedAt        time.Time `gorm:"autoCreateTime"`
}

// GroundingExample is one human-rated calibration row.
type GroundingExample struct {
	ID            uint   `gorm:"primaryKey"`
	Domain        string `gorm:"size:64"`
	DomainKey     string `gorm:"size:64;index"`
	Role          string `gorm:"size:255"`
	RequestPhrase string `gorm:"size:255"`
	Rating        float64
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

// SetRequested stores the requested categories as JSON.
func (t *Turn) SetRequested(keys []string) { t.RequestedJSON = encodeList(keys) }

// Requested returns the decoded requested categories.
func (t *Turn) Requested() []string { return decodeList(t.RequestedJSON) }

// SetRevealed stores the revealed categories as JSON.
func (t *Turn) SetRevealed(keys []string) { t.RevealedJSON = encodeList(keys) }

// Revealed returns the decoded revealed categories.
func (t *Turn) Revealed() []string { return decodeList(t.RevealedJSON) }

// SetWithheld stores the withheld categories as JSON.
func (t *Turn) SetWithheld(keys []string) { t.WithheldJSON = encodeList(keys) }

// Withheld returns the decoded withheld categories.
func (t *Turn) Withheld() []string { return decodeList(t.WithheldJSON) }

// SetAnalysisLog stores the turn's analysis log lines as JSON.
func (t *Turn) SetAnalysisLog(lines []string) { t.AnalysisLogJSON = encodeList(lines) }

// AnalysisLog returns the decoded analysis log lines.
func (t *Turn) AnalysisLog() []string { return decodeList(t.AnalysisLogJSON) }

func encodeList(items []string) string {
	if items == nil {
		return "[]"
	}
	payload, _ := json.Marshal(items)
	return string(payload)
}

func decodeList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}
