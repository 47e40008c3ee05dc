package ai

import "context"

type oracleChain struct {
	primary  Oracle
	fallback Oracle
}

// WithFallback returns an oracle that first tries the primary implementation and
// falls back to the provided oracle when the primary is unavailable or fails.
func WithFallback(primary, fallback Oracle) Oracle {
	if primary == nil {
		return fallback
	}
	if fallback == nil {
		return primary
	}
	return &oracleChain{primary: primary, fallback: fallback}
}

func (c *oracleChain) Enabled() bool {
	if c == nil {
		return false
	}
	return (c.primary != nil && c.primary.Enabled()) || (c.fallback != nil && c.fallback.Enabled())
}

// try runs call against the primary and, on failure, the fallback.
func try[T any](c *oracleChain, call func(Oracle) (T, error)) (T, error) {
	var zero T
	if c == nil {
		return zero, ErrDisabled
	}
	var primaryErr error = ErrDisabled
	if c.primary != nil && c.primary.Enabled() {
		out, err := call(c.primary)
		if err == nil {
			return out, nil
		}
		primaryErr = err
	}
	if c.fallback != nil && c.fallback.Enabled() {
		return call(c.fallback)
	}
	return zero, primaryErr
}

func (c *oracleChain) ExtractRole(ctx context.Context, text string) (RoleJudgment, error) {
	return try(c, func(o Oracle) (RoleJudgment, error) { return o.ExtractRole(ctx, text) })
}

func (c *oracleChain) ClassifyRequest(ctx context.Context, input ClassifyInput) (RequestJudgment, error) {
	return try(c, func(o Oracle) (RequestJudgment, error) { return o.ClassifyRequest(ctx, input) })
}

func (c *oracleChain) ScoreDomainRole(ctx context.Context, input DomainRoleInput) (ScoreJudgment, error) {
	return try(c, func(o Oracle) (ScoreJudgment, error) { return o.ScoreDomainRole(ctx, input) })
}

func (c *oracleChain) ScoreRequestRole(ctx context.Context, input RequestRoleInput) (ScoreJudgment, error) {
	return try(c, func(o Oracle) (ScoreJudgment, error) { return o.ScoreRequestRole(ctx, input) })
}

func (c *oracleChain) Refuse(ctx context.Context, input RefusalInput) (string, error) {
	return try(c, func(o Oracle) (string, error) { return o.Refuse(ctx, input) })
}

func (c *oracleChain) Coach(ctx context.Context, input CoachInput) (Coaching, error) {
	return try(c, func(o Oracle) (Coaching, error) { return o.Coach(ctx, input) })
}
