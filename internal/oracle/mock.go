package oracle

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/skywalker0803r/AIInterviewer-backend/internal/interview"
)

// Mock provides deterministic questions and scores when no model backend
// is configured.
type Mock struct {
	dims []string
}

func NewMock(dims []string) *Mock {
	if len(dims) == 0 {
		dims = interview.DefaultDimensions
	}
	return &Mock{dims: dims}
}

func (m *Mock) NextQuestion(ctx context.Context, req interview.QuestionRequest) (interview.Question, error) {
	select {
	case <-ctx.Done():
		return interview.Question{}, fmt.Errorf("next question: %v: %w", ctx.Err(), interview.ErrOracleUnavailable)
	default:
	}

	questions := seedQuestions(req.JobTitle)
	idx := len(req.History)
	if idx >= len(questions) {
		return interview.Question{Exhausted: true}, nil
	}
	return interview.Question{Text: questions[idx]}, nil
}

// Evaluate scores each answer purely by its length so local runs produce
// stable, explainable reports.
func (m *Mock) Evaluate(ctx context.Context, req interview.EvaluationRequest) (map[string]interview.DimensionScore, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("evaluate: %v: %w", ctx.Err(), interview.ErrOracleUnavailable)
	default:
	}

	dims := req.Dimensions
	if len(dims) == 0 {
		dims = m.dims
	}

	score := mockScore(req.History)
	out := make(map[string]interview.DimensionScore, len(dims))
	for _, dim := range dims {
		out[dim] = interview.DimensionScore{
			Score:    score,
			Feedback: "simulated evaluation",
		}
	}
	return out, nil
}

func mockScore(history []interview.Turn) float64 {
	answered := 0
	totalRunes := 0
	for _, t := range history {
		answer := strings.TrimSpace(t.AnswerText)
		if answer == "" {
			continue
		}
		answered++
		totalRunes += utf8.RuneCountInString(answer)
	}
	if answered == 0 {
		return 1
	}
	switch avg := totalRunes / answered; {
	case avg >= 200:
		return 4
	case avg >= 50:
		return 3
	default:
		return 2
	}
}
