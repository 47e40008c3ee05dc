// Package aitest provides a deterministic ai.Oracle for tests.
package aitest

import (
	"context"
	"sync"

	"vishing-sim/backend/internal/ai"
)

// Oracle answers every judgment from its fields and counts calls per judgment.
// The zero value is enabled and returns empty judgments.
type Oracle struct {
	Disabled bool

	Role    string
	RoleErr error

	Requested   []string
	ClassifyErr error

	// DomainRole and RequestRole default to a nil score when unset.
	DomainRole  func(ai.DomainRoleInput) (ai.ScoreJudgment, error)
	RequestRole func(ai.RequestRoleInput) (ai.ScoreJudgment, error)

	Refusal   string
	RefuseErr error

	Coaching ai.Coaching
	CoachErr error

	mu       sync.Mutex
	calls    map[string]int
	requests []ai.RequestRoleInput
}

// Score returns a fixed scoring function.
func Score(v float64, reasoning string) func(any) (ai.ScoreJudgment, error) {
	return func(any) (ai.ScoreJudgment, error) {
		score := v
		return ai.ScoreJudgment{Score: &score, Reasoning: reasoning}, nil
	}
}

// FixedDomainRole returns a DomainRole function that always answers v.
func FixedDomainRole(v float64, reasoning string) func(ai.DomainRoleInput) (ai.ScoreJudgment, error) {
	fn := Score(v, reasoning)
	return func(in ai.DomainRoleInput) (ai.ScoreJudgment, error) { return fn(in) }
}

// FixedRequestRole returns a RequestRole function that always answers v.
func FixedRequestRole(v float64, reasoning string) func(ai.RequestRoleInput) (ai.ScoreJudgment, error) {
	fn := Score(v, reasoning)
	return func(in ai.RequestRoleInput) (ai.ScoreJudgment, error) { return fn(in) }
}

// Calls returns how often judgment was requested.
func (o *Oracle) Calls(judgment string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls[judgment]
}

// TotalCalls returns the number of calls across all judgments.
func (o *Oracle) TotalCalls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	total := 0
	for _, n := range o.calls {
		total += n
	}
	return total
}

// RequestRoleInputs returns every request-role input received, in order.
func (o *Oracle) RequestRoleInputs() []ai.RequestRoleInput {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]ai.RequestRoleInput(nil), o.requests...)
}

func (o *Oracle) record(judgment string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.calls == nil {
		o.calls = make(map[string]int)
	}
	o.calls[judgment]++
}

// Enabled implements ai.Oracle.
func (o *Oracle) Enabled() bool { return !o.Disabled }

// ExtractRole implements ai.Oracle.
func (o *Oracle) ExtractRole(context.Context, string) (ai.RoleJudgment, error) {
	o.record(ai.JudgmentRole)
	if o.RoleErr != nil {
		return ai.RoleJudgment{}, o.RoleErr
	}
	return ai.RoleJudgment{Role: o.Role}, nil
}

// ClassifyRequest implements ai.Oracle.
func (o *Oracle) ClassifyRequest(context.Context, ai.ClassifyInput) (ai.RequestJudgment, error) {
	o.record(ai.JudgmentClassify)
	if o.ClassifyErr != nil {
		return ai.RequestJudgment{}, o.ClassifyErr
	}
	return ai.RequestJudgment{RequestedInfo: append([]string(nil), o.Requested...)}, nil
}

// ScoreDomainRole implements ai.Oracle.
func (o *Oracle) ScoreDomainRole(_ context.Context, in ai.DomainRoleInput) (ai.ScoreJudgment, error) {
	o.record(ai.JudgmentDomainRole)
	if o.DomainRole == nil {
		return ai.ScoreJudgment{}, nil
	}
	return o.DomainRole(in)
}

// ScoreRequestRole implements ai.Oracle.
func (o *Oracle) ScoreRequestRole(_ context.Context, in ai.RequestRoleInput) (ai.ScoreJudgment, error) {
	o.record(ai.JudgmentRequestRole)
	o.mu.Lock()
	o.requests = append(o.requests, in)
	o.mu.Unlock()
	if o.RequestRole == nil {
		return ai.ScoreJudgment{}, nil
	}
	return o.RequestRole(in)
}

// Refuse implements ai.Oracle.
func (o *Oracle) Refuse(context.Context, ai.RefusalInput) (string, error) {
	o.record(ai.JudgmentRefusal)
	return o.Refusal, o.RefuseErr
}

// Coach implements ai.Oracle.
func (o *Oracle) Coach(context.Context, ai.CoachInput) (ai.Coaching, error) {
	o.record(ai.JudgmentCoach)
	return o.Coaching, o.CoachErr
}
