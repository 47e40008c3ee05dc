package feedback

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vishing-sim/backend/internal/ai"
	"vishing-sim/backend/internal/ai/aitest"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name  string
		turns []Turn
		want  Metrics
	}{
		{
			name:  "empty",
			turns: nil,
			want:  Metrics{PhaseTrend: TrendNeutral},
		},
		{
			name: "rising trust with one breach",
			turns: []Turn{
				{Score: 0},
				{Score: 3.5},
				{Score: 2},
				{Score: 9.85, Revealed: []string{"otp", "branch"}, Breach: true},
			},
			want: Metrics{Turns: 4, TrustIncreases: 2, TrustDecreases: 1, InfoRevealed: 2, InfoRatio: 0.5, Breaches: 1, PhaseTrend: TrendIncrement},
		},
		{
			name:  "falling",
			turns: []Turn{{Score: 6, Revealed: []string{"location"}}, {Score: 1.45}},
			want:  Metrics{Turns: 2, TrustDecreases: 1, InfoRevealed: 1, InfoRatio: 0.5, PhaseTrend: TrendDecrement},
		},
		{
			name:  "flat",
			turns: []Turn{{Score: 0}, {Score: 0}},
			want:  Metrics{Turns: 2, PhaseTrend: TrendNeutral},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compute(tt.turns))
		})
	}
}

func TestScore(t *testing.T) {
	assert.Equal(t, 10.0, Score(Metrics{}))
	assert.Equal(t, 7.9, Score(Metrics{Breaches: 1, InfoRatio: 0.5, TrustIncreases: 2}))
	assert.Equal(t, 0.0, Score(Metrics{Breaches: 9}))
	assert.Equal(t, 10.0, Score(Metrics{TrustIncreases: 30}))
}

func TestEvaluateCoaching(t *testing.T) {
	turns := []Turn{
		{UserInput: "hi", AgentResponse: "hello", Score: 0},
		{UserInput: "bank manager, otp", AgentResponse: "Your OTP is 847392.", Score: 9.85, Revealed: []string{"otp"}, Breach: true},
	}

	oracle := &aitest.Oracle{Coaching: ai.Coaching{Strengths: []string{"claimed a plausible role"}}}
	report := NewEvaluator(oracle).Evaluate(context.Background(), "banking", turns)
	require.NotNil(t, report.Coaching)
	assert.Equal(t, []string{"claimed a plausible role"}, report.Coaching.Strengths)
	assert.Equal(t, []float64{0, 9.85}, report.Scores)
	assert.Equal(t, 7.7, report.Score)

	failing := &aitest.Oracle{CoachErr: errors.New("quota")}
	report = NewEvaluator(failing).Evaluate(context.Background(), "banking", turns)
	assert.Nil(t, report.Coaching)
	assert.Equal(t, 7.7, report.Score)

	report = NewEvaluator(nil).Evaluate(context.Background(), "banking", nil)
	assert.Nil(t, report.Coaching)
	assert.Equal(t, 10.0, report.Score)
}
