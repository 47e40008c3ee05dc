package scoring

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vishing-sim/backend/internal/ai"
	"vishing-sim/backend/internal/ai/aitest"
	"vishing-sim/backend/internal/grounding"
	"vishing-sim/backend/internal/persona"
)

func registry(t *testing.T) *persona.Registry {
	t.Helper()
	reg, err := persona.Default()
	require.NoError(t, err)
	return reg
}

func banking(t *testing.T) *persona.Persona {
	t.Helper()
	p, err := registry(t).Lookup(persona.Banking)
	require.NoError(t, err)
	return p
}

func seedCorpus(t *testing.T) *grounding.Table {
	t.Helper()
	table, err := grounding.Seed()
	require.NoError(t, err)
	return table
}

func TestAggregateGateSkipsOracle(t *testing.T) {
	for _, domain := range persona.Domains {
		t.Run(string(domain), func(t *testing.T) {
			oracle := &aitest.Oracle{
				DomainRole:  aitest.FixedDomainRole(9, "fits"),
				RequestRole: aitest.FixedRequestRole(9, "fits"),
			}
			agg := NewAggregator(oracle, seedCorpus(t), 0, nil)

			score := agg.Aggregate(context.Background(), domain, RequestAssessment{Domain: domain, Requested: []string{"weather"}}, "bank manager", "what's the weather")

			assert.False(t, score.GatePassed)
			assert.Zero(t, score.Total)
			assert.Equal(t, RationaleInvalidRequest, score.Rationale)
			assert.Equal(t, "Very Low", score.Level)
			assert.Zero(t, oracle.TotalCalls())
		})
	}
}

func TestDisclosureThresholdIsStrict(t *testing.T) {
	p := banking(t)
	assessment := RequestAssessment{Domain: persona.Banking, Requested: []string{"otp"}, Critical: []string{"otp"}}

	cases := []struct {
		total  float64
		reveal bool
	}{
		{0, false},
		{4.99, false},
		{5, false},
		{5.01, true},
		{10, true},
	}
	for _, tc := range cases {
		decision := Decide(IntegrityScore{Total: tc.total, GatePassed: true}, assessment, p)
		if tc.reveal {
			assert.Equal(t, []string{"otp"}, decision.Categories(), "total %.2f", tc.total)
			assert.False(t, decision.Refuse)
			assert.Empty(t, decision.Withheld)
		} else {
			assert.Empty(t, decision.Reveal, "total %.2f", tc.total)
			assert.True(t, decision.Refuse)
			assert.Equal(t, []string{"otp"}, decision.Withheld)
		}
	}
}

func TestDecideRevealsClassifiedInRequestOrder(t *testing.T) {
	p := banking(t)
	assessment := RequestAssessment{
		Domain:    persona.Banking,
		Requested: []string{"branch", "password", "otp"},
		Critical:  []string{"otp"},
		Normal:    []string{"branch"},
	}

	decision := Decide(IntegrityScore{Total: 8, GatePassed: true}, assessment, p)

	assert.Equal(t, []Disclosure{
		{Category: "branch", Value: "Main Street Branch"},
		{Category: "otp", Value: "847392"},
	}, decision.Reveal)
	assert.Equal(t, []string{"password"}, decision.Withheld)
}

func TestDecideNeverRevealsMissingValues(t *testing.T) {
	p := banking(t)
	// password is in the banking vocabulary but the persona has no value for it.
	assessment := RequestAssessment{
		Domain:    persona.Banking,
		Requested: []string{"password", "otp"},
		Critical:  []string{"password", "otp"},
	}

	decision := Decide(IntegrityScore{Total: 9, GatePassed: true}, assessment, p)

	for _, r := range decision.Reveal {
		assert.True(t, p.Offers(r.Category), r.Category)
	}
	assert.Equal(t, []string{"otp"}, decision.Categories())
	assert.Equal(t, []Disclosure{{Category: "password", Value: "<PASSWORD_VALUE>"}}, decision.Placeholders)
	assert.Equal(t, []string{"password"}, decision.Withheld)
}

func TestDecideRefusesWhenGateFailed(t *testing.T) {
	decision := Decide(IntegrityScore{Total: 9, GatePassed: false}, RequestAssessment{}, banking(t))
	assert.True(t, decision.Refuse)
	assert.Empty(t, decision.Reveal)
}

func TestClassifierFiltersToVocabulary(t *testing.T) {
	oracle := &aitest.Oracle{Requested: []string{"bank_pin", "Credit Card", "sim_number", "otp", "credit-card", "password", "location"}}
	classifier := NewRequestClassifier(oracle, registry(t), nil)

	got := classifier.Classify(context.Background(), "give me everything", persona.Banking, nil)

	p := banking(t)
	for _, key := range got.Requested {
		assert.True(t, p.InVocabulary(key), key)
	}
	assert.Equal(t, []string{"credit_card", "otp", "password", "location"}, got.Requested)
	assert.Equal(t, []string{"credit_card", "otp"}, got.Critical)
	assert.Equal(t, []string{"location"}, got.Normal)
}

func TestClassifierFallbacks(t *testing.T) {
	t.Run("oracle error", func(t *testing.T) {
		oracle := &aitest.Oracle{ClassifyErr: errors.New("timeout")}
		got := NewRequestClassifier(oracle, registry(t), nil).Classify(context.Background(), "otp please", persona.Banking, nil)
		assert.True(t, got.Empty())
		assert.Empty(t, got.Requested)
	})
	t.Run("unknown domain", func(t *testing.T) {
		oracle := &aitest.Oracle{Requested: []string{"otp"}}
		got := NewRequestClassifier(oracle, registry(t), nil).Classify(context.Background(), "otp please", persona.Domain("casino"), nil)
		assert.True(t, got.Empty())
		assert.Zero(t, oracle.TotalCalls())
	})
	t.Run("nothing requested", func(t *testing.T) {
		oracle := &aitest.Oracle{}
		got := NewRequestClassifier(oracle, registry(t), nil).Classify(context.Background(), "hello", persona.Law, nil)
		assert.True(t, got.Empty())
	})
}

func TestCombineIsMonotonic(t *testing.T) {
	steps := []float64{0, 1.5, 2, 3.3, 5, 6.7, 8, 9.9, 10}
	for _, fixed := range steps {
		prevByRequest, prevByDomain := -1.0, -1.0
		for _, v := range steps {
			byRequest := Combine(fixed, v)
			byDomain := Combine(v, fixed)
			assert.GreaterOrEqual(t, byRequest, prevByRequest)
			assert.GreaterOrEqual(t, byDomain, prevByDomain)
			assert.GreaterOrEqual(t, byRequest, 0.0)
			assert.LessOrEqual(t, byRequest, 10.0)
			prevByRequest, prevByDomain = byRequest, byDomain
		}
	}
	assert.Equal(t, 9.7, Combine(9, 10))
	assert.Equal(t, 2.3, Combine(3, 2))
}

func TestNormalOnlyRequestSkipsRequestRole(t *testing.T) {
	for _, dr := range []float64{0, 4, 5, 8, 10} {
		oracle := &aitest.Oracle{DomainRole: aitest.FixedDomainRole(dr, "domain fit")}
		agg := NewAggregator(oracle, seedCorpus(t), 0, nil)
		assessment := RequestAssessment{Domain: persona.Banking, Requested: []string{"location"}, Normal: []string{"location"}}

		score := agg.Aggregate(context.Background(), persona.Banking, assessment, "english teacher", "where are you based?")

		require.True(t, score.GatePassed)
		assert.Zero(t, oracle.Calls(ai.JudgmentRequestRole))
		assert.Equal(t, 1, oracle.Calls(ai.JudgmentDomainRole))
		assert.Equal(t, NeutralScore, score.RequestRoleScore)
		assert.False(t, score.RequestRoleAssessed)
		assert.InDelta(t, 0.3*dr+3.5, score.Total, 1e-9)
		assert.Contains(t, score.Rationale, "not specifically assessed")

		decision := Decide(score, assessment, banking(t))
		assert.Equal(t, score.Total > 5, len(decision.Reveal) > 0, "domain-role %.1f", dr)
	}
}

func TestOnlyFirstCriticalIsScored(t *testing.T) {
	oracle := &aitest.Oracle{
		DomainRole:  aitest.FixedDomainRole(10, "fits"),
		RequestRole: aitest.FixedRequestRole(9, "plausible"),
	}
	agg := NewAggregator(oracle, seedCorpus(t), 0, nil)
	assessment := RequestAssessment{
		Domain:    persona.Banking,
		Requested: []string{"branch", "ssn", "otp"},
		Critical:  []string{"ssn", "otp"},
		Normal:    []string{"branch"},
	}

	score := agg.Aggregate(context.Background(), persona.Banking, assessment, "Bank Manager", "ssn and otp")

	require.Equal(t, 1, oracle.Calls(ai.JudgmentRequestRole))
	inputs := oracle.RequestRoleInputs()
	assert.Equal(t, "ssn", inputs[0].Category)
	assert.Equal(t, "Bank Manager", inputs[0].Role)
	assert.Len(t, inputs[0].Examples, grounding.DefaultLimit)
	assert.Equal(t, "ssn", score.AssessedCategory)
	assert.Equal(t, 9.3, score.Total)
	assert.Equal(t, "High", score.Level)
}

type failingSource struct{}

func (failingSource) Examples(context.Context, string, int) ([]grounding.Example, error) {
	return nil, errors.New("corpus offline")
}

func TestScoreFallbacks(t *testing.T) {
	nan := math.NaN()
	cases := []struct {
		name   string
		judged func(ai.DomainRoleInput) (ai.ScoreJudgment, error)
		want   float64
	}{
		{"transport error", func(ai.DomainRoleInput) (ai.ScoreJudgment, error) { return ai.ScoreJudgment{}, errors.New("boom") }, 5},
		{"missing score", func(ai.DomainRoleInput) (ai.ScoreJudgment, error) { return ai.ScoreJudgment{Reasoning: "?"}, nil }, 5},
		{"above range", aitest.FixedDomainRole(11, "too high"), 5},
		{"below range", aitest.FixedDomainRole(-2, "too low"), 5},
		{"nan", func(ai.DomainRoleInput) (ai.ScoreJudgment, error) { return ai.ScoreJudgment{Score: &nan}, nil }, 5},
		{"in range", aitest.FixedDomainRole(7.5, "ok"), 7.5},
		{"upper bound", aitest.FixedDomainRole(10, "ok"), 10},
		{"lower bound", aitest.FixedDomainRole(0, "ok"), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			oracle := &aitest.Oracle{DomainRole: tc.judged}
			got, _ := NewDomainRoleScorer(oracle, nil).Score(context.Background(), persona.Banking, "")
			assert.Equal(t, tc.want, got)
			assert.Equal(t, 1, oracle.Calls(ai.JudgmentDomainRole))
		})
	}

	t.Run("request role error", func(t *testing.T) {
		oracle := &aitest.Oracle{RequestRole: func(ai.RequestRoleInput) (ai.ScoreJudgment, error) {
			return ai.ScoreJudgment{}, errors.New("boom")
		}}
		got, reason := NewRequestRoleScorer(oracle, nil).Score(context.Background(), "clerk", "otp", persona.Banking, nil)
		assert.Equal(t, NeutralScore, got)
		assert.Contains(t, reason, "boom")
	})

	t.Run("grounding unavailable", func(t *testing.T) {
		oracle := &aitest.Oracle{
			DomainRole:  aitest.FixedDomainRole(6, "ok"),
			RequestRole: aitest.FixedRequestRole(6, "ok"),
		}
		agg := NewAggregator(oracle, failingSource{}, 0, nil)
		score := agg.Aggregate(context.Background(), persona.Law, RequestAssessment{Requested: []string{"ssn"}, Critical: []string{"ssn"}}, "paralegal", "ssn")
		assert.Equal(t, 6.0, score.Total)
		assert.Empty(t, oracle.RequestRoleInputs()[0].Examples)
	})
}

func TestRoleExtractor(t *testing.T) {
	t.Run("verbatim", func(t *testing.T) {
		oracle := &aitest.Oracle{Role: `  "bank manager".`}
		claim := NewRoleExtractor(oracle, nil).Extract(context.Background(), "Hi, I am a bank manager")
		assert.Equal(t, RoleClaim{Role: "bank manager"}, claim)
	})
	t.Run("oracle failure", func(t *testing.T) {
		oracle := &aitest.Oracle{RoleErr: errors.New("down")}
		claim := NewRoleExtractor(oracle, nil).Extract(context.Background(), "Hi, I am a bank manager")
		assert.Empty(t, claim.Role)
		assert.True(t, claim.Fallback)
	})
	t.Run("empty role still scored", func(t *testing.T) {
		oracle := &aitest.Oracle{DomainRole: func(in ai.DomainRoleInput) (ai.ScoreJudgment, error) {
			v := 2.0
			if in.Role != "" {
				v = 9
			}
			return ai.ScoreJudgment{Score: &v}, nil
		}}
		got, _ := NewDomainRoleScorer(oracle, nil).Score(context.Background(), persona.Telecom, "")
		assert.Equal(t, 2.0, got)
	})
}

func TestLevel(t *testing.T) {
	assert.Equal(t, "Very Low", Level(9, false))
	assert.Equal(t, "Very Low", Level(2.99, true))
	assert.Equal(t, "Low", Level(3, true))
	assert.Equal(t, "Moderate", Level(5, true))
	assert.Equal(t, "High", Level(7, true))
}
