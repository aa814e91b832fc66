package oracle

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/skywalker0803r/AIInterviewer-backend/internal/interview"
)

type fakeGenerator struct {
	responses []string
	err       error
	calls     int
}

func (g *fakeGenerator) GenerateContent(_ context.Context, _ string) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	if len(g.responses) == 0 {
		return "", nil
	}
	resp := g.responses[0]
	if len(g.responses) > 1 {
		g.responses = g.responses[1:]
	}
	return resp, nil
}

const planJSON = `{"questions":[{"id":1,"question":"First question?"},{"id":2,"question":"Second question?"}]}`

func newTestOracle(gen contentGenerator) *llmOracle {
	return newLLMOracle(gen, Config{MinQuestions: 2, MaxQuestions: 2}, zap.NewNop())
}

func TestNextQuestionPlansOnce(t *testing.T) {
	gen := &fakeGenerator{responses: []string{planJSON}}
	o := newTestOracle(gen)

	req := interview.QuestionRequest{SessionID: "s1", JobTitle: "Engineer", JobDescription: "desc"}

	q1, err := o.NextQuestion(context.Background(), req)
	if err != nil {
		t.Fatalf("NextQuestion: %v", err)
	}
	if q1.Text != "First question?" {
		t.Fatalf("q1 = %q", q1.Text)
	}

	req.History = []interview.Turn{{Question: q1.Text, AnswerText: "a"}}
	q2, err := o.NextQuestion(context.Background(), req)
	if err != nil {
		t.Fatalf("NextQuestion: %v", err)
	}
	if q2.Text != "Second question?" {
		t.Fatalf("q2 = %q", q2.Text)
	}

	if gen.calls != 1 {
		t.Fatalf("generator calls = %d, want 1 (plan cached per session)", gen.calls)
	}
}

func TestNextQuestionExhaustsPlan(t *testing.T) {
	gen := &fakeGenerator{responses: []string{planJSON}}
	o := newTestOracle(gen)

	req := interview.QuestionRequest{SessionID: "s1", JobTitle: "Engineer", JobDescription: "desc"}
	if _, err := o.NextQuestion(context.Background(), req); err != nil {
		t.Fatalf("NextQuestion: %v", err)
	}

	req.History = []interview.Turn{{}, {}}
	q, err := o.NextQuestion(context.Background(), req)
	if err != nil {
		t.Fatalf("NextQuestion: %v", err)
	}
	if !q.Exhausted {
		t.Fatalf("q = %+v, want Exhausted", q)
	}

	o.mu.Lock()
	_, cached := o.plans["s1"]
	o.mu.Unlock()
	if cached {
		t.Fatal("exhausted plan should be dropped from the cache")
	}
}

func TestNextQuestionTransportFailure(t *testing.T) {
	gen := &fakeGenerator{err: fmt.Errorf("connection refused")}
	o := newTestOracle(gen)

	_, err := o.NextQuestion(context.Background(), interview.QuestionRequest{SessionID: "s1", JobDescription: "desc"})
	if !errors.Is(err, interview.ErrOracleUnavailable) {
		t.Fatalf("err = %v, want ErrOracleUnavailable", err)
	}
}

func TestNextQuestionFallsBackToSeeds(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"the model rambled instead of emitting JSON"}}
	o := newTestOracle(gen)

	q, err := o.NextQuestion(context.Background(), interview.QuestionRequest{SessionID: "s1", JobTitle: "Engineer", JobDescription: "desc"})
	if err != nil {
		t.Fatalf("NextQuestion: %v", err)
	}
	if q.Exhausted || q.Text == "" {
		t.Fatalf("q = %+v, want a seed question", q)
	}

	seeds := seedQuestions("Engineer")
	if q.Text != seeds[0] {
		t.Fatalf("q = %q, want first seed question %q", q.Text, seeds[0])
	}
}

func TestEvaluate(t *testing.T) {
	gen := &fakeGenerator{responses: []string{`{"communication":{"score":4,"feedback":"clear"}}`}}
	o := newTestOracle(gen)

	scores, err := o.Evaluate(context.Background(), interview.EvaluationRequest{
		SessionID:  "s1",
		Dimensions: []string{"communication"},
		History:    []interview.Turn{{Question: "q", AnswerText: "a"}},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if scores["communication"].Score != 4 {
		t.Fatalf("score = %+v", scores["communication"])
	}
}

func TestEvaluateUnparseable(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"no json here"}}
	o := newTestOracle(gen)

	_, err := o.Evaluate(context.Background(), interview.EvaluationRequest{
		SessionID:  "s1",
		Dimensions: []string{"communication"},
	})
	if !errors.Is(err, interview.ErrOracleUnavailable) {
		t.Fatalf("err = %v, want ErrOracleUnavailable", err)
	}
}

func TestMockOracleFlow(t *testing.T) {
	m := NewMock(nil)

	req := interview.QuestionRequest{SessionID: "s1", JobTitle: "Engineer"}
	q, err := m.NextQuestion(context.Background(), req)
	if err != nil {
		t.Fatalf("NextQuestion: %v", err)
	}
	if q.Text == "" {
		t.Fatal("expected a question")
	}

	scores, err := m.Evaluate(context.Background(), interview.EvaluationRequest{
		Dimensions: []string{"communication"},
		History: []interview.Turn{
			{Question: q.Text, AnswerText: "short"},
		},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if scores["communication"].Score != 2 {
		t.Fatalf("score = %v, want 2 for a short answer", scores["communication"].Score)
	}
}

func TestMockOracleCanceledContext(t *testing.T) {
	m := NewMock(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.NextQuestion(ctx, interview.QuestionRequest{SessionID: "s1"}); !errors.Is(err, interview.ErrOracleUnavailable) {
		t.Fatalf("NextQuestion err = %v, want ErrOracleUnavailable", err)
	}
	if _, err := m.Evaluate(ctx, interview.EvaluationRequest{SessionID: "s1"}); !errors.Is(err, interview.ErrOracleUnavailable) {
		t.Fatalf("Evaluate err = %v, want ErrOracleUnavailable", err)
	}
}

func TestMockScoreBands(t *testing.T) {
	long := make([]rune, 250)
	for i := range long {
		long[i] = 'a'
	}

	tests := []struct {
		name    string
		history []interview.Turn
		want    float64
	}{
		{"no answers", []interview.Turn{{AnswerText: "  "}}, 1},
		{"short", []interview.Turn{{AnswerText: "brief"}}, 2},
		{"medium", []interview.Turn{{AnswerText: string(long[:80])}}, 3},
		{"long", []interview.Turn{{AnswerText: string(long)}}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mockScore(tt.history); got != tt.want {
				t.Fatalf("mockScore = %v, want %v", got, tt.want)
			}
		})
	}
}
