package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Oracle is the external reasoning service. Each method is one judgment type;
// callers own the fallback when a call fails.
type Oracle interface {
	Enabled() bool
	ExtractRole(ctx context.Context, text string) (RoleJudgment, error)
	ClassifyRequest(ctx context.Context, input ClassifyInput) (RequestJudgment, error)
	ScoreDomainRole(ctx context.Context, input DomainRoleInput) (ScoreJudgment, error)
	ScoreRequestRole(ctx context.Context, input RequestRoleInput) (ScoreJudgment, error)
	Refuse(ctx context.Context, input RefusalInput) (string, error)
	Coach(ctx context.Context, input CoachInput) (Coaching, error)
}

// Completer sends a prompt to a language model and returns the raw reply.
type Completer interface {
	Name() string
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// Observer receives per-call telemetry. It may be nil.
type Observer interface {
	ObserveOracleCall(provider, judgment string, d time.Duration, err error)
}

var (
	// ErrDisabled is returned when no oracle backend is configured.
	ErrDisabled = errors.New("reasoning oracle disabled")
	// ErrMalformed marks replies that are not the expected JSON shape.
	ErrMalformed = errors.New("malformed oracle reply")
)

// LLMOracle implements Oracle on top of any Completer.
type LLMOracle struct {
	completer Completer
	timeout   time.Duration
	observer  Observer
}

// NewLLMOracle wraps completer. A zero timeout leaves deadlines to the caller.
func NewLLMOracle(completer Completer, timeout time.Duration, observer Observer) *LLMOracle {
	return &LLMOracle{completer: completer, timeout: timeout, observer: observer}
}

// Enabled reports whether a completer is attached.
func (o *LLMOracle) Enabled() bool {
	return o != nil && o.completer != nil
}

// ExtractRole implements Oracle.
func (o *LLMOracle) ExtractRole(ctx context.Context, text string) (RoleJudgment, error) {
	var out RoleJudgment
	if err := o.completeJSON(ctx, rolePrompt(text), &out); err != nil {
		return RoleJudgment{}, err
	}
	return out, nil
}

// ClassifyRequest implements Oracle.
func (o *LLMOracle) ClassifyRequest(ctx context.Context, input ClassifyInput) (RequestJudgment, error) {
	var raw map[string]json.RawMessage
	if err := o.completeJSON(ctx, classifyPrompt(input), &raw); err != nil {
		return RequestJudgment{}, err
	}
	field, ok := raw["requested_info"]
	if !ok {
		return RequestJudgment{}, fmt.Errorf("%w: requested_info missing", ErrMalformed)
	}
	var out RequestJudgment
	if err := json.Unmarshal(field, &out.RequestedInfo); err != nil {
		return RequestJudgment{}, fmt.Errorf("%w: requested_info: %v", ErrMalformed, err)
	}
	return out, nil
}

// ScoreDomainRole implements Oracle.
func (o *LLMOracle) ScoreDomainRole(ctx context.Context, input DomainRoleInput) (ScoreJudgment, error) {
	var wire domainRoleWire
	if err := o.completeJSON(ctx, domainRolePrompt(input), &wire); err != nil {
		return ScoreJudgment{}, err
	}
	return ScoreJudgment{Score: wire.IntegrityScore.Value, Reasoning: strings.TrimSpace(wire.Reasoning)}, nil
}

// ScoreRequestRole implements Oracle.
func (o *LLMOracle) ScoreRequestRole(ctx context.Context, input RequestRoleInput) (ScoreJudgment, error) {
	var wire requestRoleWire
	if err := o.completeJSON(ctx, requestRolePrompt(input), &wire); err != nil {
		return ScoreJudgment{}, err
	}
	return ScoreJudgment{Score: wire.PredictedScore.Value, Reasoning: strings.TrimSpace(wire.Reasoning)}, nil
}

// Refuse implements Oracle.
func (o *LLMOracle) Refuse(ctx context.Context, input RefusalInput) (string, error) {
	reply, err := o.complete(ctx, refusalPrompt(input))
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("%w: empty refusal", ErrMalformed)
	}
	return reply, nil
}

// Coach implements Oracle.
func (o *LLMOracle) Coach(ctx context.Context, input CoachInput) (Coaching, error) {
	var out Coaching
	if err := o.completeJSON(ctx, coachPrompt(input), &out); err != nil {
		return Coaching{}, err
	}
	return out, nil
}

func (o *LLMOracle) completeJSON(ctx context.Context, prompt Prompt, target any) error {
	reply, err := o.complete(ctx, prompt)
	if err != nil {
		return err
	}
	content := normalizeJSONBlock(reply)
	if content == "" {
		return fmt.Errorf("%w: empty reply", ErrMalformed)
	}
	if err := json.Unmarshal([]byte(content), target); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

func (o *LLMOracle) complete(ctx context.Context, prompt Prompt) (string, error) {
	if !o.Enabled() {
		return "", ErrDisabled
	}
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	start := time.Now()
	reply, err := o.completer.Complete(ctx, prompt)
	if o.observer != nil {
		o.observer.ObserveOracleCall(o.completer.Name(), prompt.Judgment, time.Since(start), err)
	}
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", o.completer.Name(), prompt.Judgment, err)
	}
	return reply, nil
}

// normalizeJSONBlock strips markdown fences and surrounding prose from a reply.
func normalizeJSONBlock(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.IndexRune(trimmed, '\n'); idx >= 0 {
			trimmed = trimmed[idx+1:]
		}
		if strings.HasSuffix(trimmed, "```") {
			trimmed = trimmed[:len(trimmed)-3]
		}
	}
	trimmed = strings.TrimSpace(trimmed)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end >= start {
		return strings.TrimSpace(trimmed[start : end+1])
	}
	return trimmed
}
