package interview

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestOverallScoreMean(t *testing.T) {
	dims := map[string]DimensionScore{
		"communication":   {Score: 4},
		"technical depth": {Score: 2},
		"teamwork":        {Score: 3},
	}
	if got := overallScore(dims, nil); !almostEqual(got, 3) {
		t.Fatalf("overall = %v, want 3", got)
	}
}

func TestOverallScoreWeighted(t *testing.T) {
	dims := map[string]DimensionScore{
		"communication":   {Score: 4},
		"technical depth": {Score: 2},
	}
	weights := map[string]float64{"technical depth": 3}
	// (4*1 + 2*3) / 4 = 2.5
	if got := overallScore(dims, weights); !almostEqual(got, 2.5) {
		t.Fatalf("overall = %v, want 2.5", got)
	}
}

func TestOverallScoreSkipsUnscoredDimensions(t *testing.T) {
	// The oracle scored one dimension and skipped the rest; the skipped
	// ones stay zero in the report but must not drag the mean down.
	dims := map[string]DimensionScore{
		"technical depth": {Score: 4},
		"leadership":      {},
		"communication":   {},
		"teamwork":        {},
	}
	if got := overallScore(dims, nil); !almostEqual(got, 4) {
		t.Fatalf("overall = %v, want 4", got)
	}
}

func TestOverallScoreEmpty(t *testing.T) {
	if got := overallScore(nil, nil); got != 0 {
		t.Fatalf("overall = %v, want 0", got)
	}
}

func TestAnsweredTurns(t *testing.T) {
	history := []Turn{
		{Question: "q1", AnswerText: "an answer"},
		{Question: "q2", AnswerText: "   "},
		{Question: "q3", AnswerText: "another"},
		{Question: "q4"},
	}
	if got := answeredTurns(history); got != 2 {
		t.Fatalf("answered turns = %d, want 2", got)
	}
}

func TestAggregateTurnScores(t *testing.T) {
	dims := []string{"communication", "teamwork", "creativity"}
	history := []Turn{
		{Scores: map[string]float64{"communication": 4, "teamwork": 2}},
		{Scores: map[string]float64{"communication": 2}},
		{},
	}

	got := aggregateTurnScores(dims, history)

	if !almostEqual(got["communication"].Score, 3) {
		t.Fatalf("communication = %v, want 3", got["communication"].Score)
	}
	if !almostEqual(got["teamwork"].Score, 2) {
		t.Fatalf("teamwork = %v, want 2", got["teamwork"].Score)
	}
	if got["creativity"].Score != 0 {
		t.Fatalf("creativity = %v, want 0 for a never-scored dimension", got["creativity"].Score)
	}
}
