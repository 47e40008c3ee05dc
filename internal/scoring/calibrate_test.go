package scoring

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vishing-sim/backend/internal/ai"
	"vishing-sim/backend/internal/ai/aitest"
	"vishing-sim/backend/internal/grounding"
)

func TestCalibrate(t *testing.T) {
	corpus := []grounding.Example{
		{Domain: "Banking", Role: "Bank Manager", RequestPhrase: "otp", Rating: 10},
		{Domain: "Banking", Role: "Student", RequestPhrase: "ssn", Rating: 1},
		{Domain: "Law", Role: "Attorney", RequestPhrase: "case_number", Rating: 9},
	}
	oracle := &aitest.Oracle{RequestRole: aitest.FixedRequestRole(8, "")}

	results, err := Calibrate(context.Background(), NewRequestRoleScorer(oracle, nil), corpus, 12, 2)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, CalibrationResult{Domain: "banking", Samples: 2, MAE: 4.5, MaxError: 7}, results[0])
	assert.Equal(t, CalibrationResult{Domain: "law", Samples: 1, MAE: 1, MaxError: 1}, results[1])
	assert.Equal(t, 3, oracle.Calls(ai.JudgmentRequestRole))

	for _, in := range oracle.RequestRoleInputs() {
		for _, ex := range in.Examples {
			assert.False(t, ex.Role == in.Role && ex.RequestPhrase == in.Category, "row used to ground itself")
		}
	}
}

func TestCalibrateExcludesUnscoredRows(t *testing.T) {
	down := func(ai.RequestRoleInput) (ai.ScoreJudgment, error) {
		return ai.ScoreJudgment{}, errors.New("transport down")
	}

	t.Run("every row fails", func(t *testing.T) {
		corpus := []grounding.Example{
			{Domain: "Banking", Role: "Bank Manager", RequestPhrase: "otp", Rating: 5},
			{Domain: "Banking", Role: "Teller", RequestPhrase: "otp", Rating: 5},
		}
		oracle := &aitest.Oracle{RequestRole: down}

		results, err := Calibrate(context.Background(), NewRequestRoleScorer(oracle, nil), corpus, 12, 2)
		require.ErrorIs(t, err, ErrNoPredictions)
		assert.Nil(t, results)
		assert.Equal(t, 2, oracle.Calls(ai.JudgmentRequestRole))
	})

	t.Run("failed and unusable rows are not samples", func(t *testing.T) {
		corpus := []grounding.Example{
			{Domain: "Banking", Role: "Bank Manager", RequestPhrase: "otp", Rating: 10},
			{Domain: "Banking", Role: "Teller", RequestPhrase: "otp", Rating: 5},
			{Domain: "Banking", Role: "Janitor", RequestPhrase: "otp", Rating: 5},
		}
		oracle := &aitest.Oracle{RequestRole: func(in ai.RequestRoleInput) (ai.ScoreJudgment, error) {
			switch in.Role {
			case "Teller":
				return down(in)
			case "Janitor":
				return aitest.FixedRequestRole(42, "")(in)
			}
			return aitest.FixedRequestRole(8, "")(in)
		}}

		results, err := Calibrate(context.Background(), NewRequestRoleScorer(oracle, nil), corpus, 12, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, CalibrationResult{Domain: "banking", Samples: 1, MAE: 2, MaxError: 2, Failed: 2}, results[0])
	})
}

func TestRequestRoleScoreStillFallsBack(t *testing.T) {
	oracle := &aitest.Oracle{RequestRole: func(ai.RequestRoleInput) (ai.ScoreJudgment, error) {
		return ai.ScoreJudgment{}, errors.New("transport down")
	}}
	score, rationale := NewRequestRoleScorer(oracle, nil).Score(context.Background(), "Teller", "otp", "banking", nil)
	assert.Equal(t, NeutralScore, score)
	assert.Contains(t, rationale, "transport down")
}

func TestLeaveOneOut(t *testing.T) {
	rows := []grounding.Example{{Role: "a"}, {Role: "b"}, {Role: "c"}, {Role: "d"}}
	got := leaveOneOut(rows, 1, 2)
	assert.Equal(t, []grounding.Example{{Role: "a"}, {Role: "c"}}, got)
}
