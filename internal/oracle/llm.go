package oracle

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/skywalker0803r/AIInterviewer-backend/internal/interview"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// llmOracle plans a full question set on a session's first request and
// issues it one question at a time, the way a human interviewer prepares
// before the candidate walks in. Evaluation is a separate prompt over the
// transcript.
type llmOracle struct {
	gen          contentGenerator
	dims         []string
	minQuestions int
	maxQuestions int
	logger       *zap.Logger

	mu    sync.Mutex
	plans map[string]questionPlan
}

type questionPlan struct {
	questions []string
	createdAt time.Time
}

const planTTL = time.Hour

func newLLMOracle(gen contentGenerator, cfg Config, logger *zap.Logger) *llmOracle {
	dims := cfg.Dimensions
	if len(dims) == 0 {
		dims = interview.DefaultDimensions
	}
	minQ, maxQ := cfg.MinQuestions, cfg.MaxQuestions
	if minQ <= 0 {
		minQ = 5
	}
	if maxQ < minQ {
		maxQ = 8
	}
	return &llmOracle{
		gen:          gen,
		dims:         dims,
		minQuestions: minQ,
		maxQuestions: maxQ,
		logger:       logger,
		plans:        make(map[string]questionPlan),
	}
}

func (o *llmOracle) NextQuestion(ctx context.Context, req interview.QuestionRequest) (interview.Question, error) {
	plan, err := o.planFor(ctx, req)
	if err != nil {
		return interview.Question{}, err
	}

	idx := len(req.History)
	if idx >= len(plan) {
		o.dropPlan(req.SessionID)
		return interview.Question{Exhausted: true}, nil
	}
	return interview.Question{Text: plan[idx]}, nil
}

func (o *llmOracle) Evaluate(ctx context.Context, req interview.EvaluationRequest) (map[string]interview.DimensionScore, error) {
	dims := req.Dimensions
	if len(dims) == 0 {
		dims = o.dims
	}

	prompt := buildEvaluationPrompt(req.JobTitle, req.JobDescription, dims, req.History)
	raw, err := o.gen.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %v: %w", err, interview.ErrOracleUnavailable)
	}

	scores, err := parseEvaluation(raw, dims)
	if err != nil {
		o.logger.Warn("oracle returned unparseable evaluation",
			zap.String("session_id", req.SessionID),
			zap.String("raw_preview", truncate(raw, 200)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("evaluate: %v: %w", err, interview.ErrOracleUnavailable)
	}
	return scores, nil
}

// planFor returns the cached question plan for the session, generating one
// on first use. A transport failure surfaces as OracleUnavailable; an
// unparseable or empty model reply falls back to the seed question set so
// an interview can still run.
func (o *llmOracle) planFor(ctx context.Context, req interview.QuestionRequest) ([]string, error) {
	o.mu.Lock()
	if plan, ok := o.plans[req.SessionID]; ok {
		o.mu.Unlock()
		return plan.questions, nil
	}
	o.mu.Unlock()

	prompt := buildQuestionPlanPrompt(req.JobTitle, req.JobDescription, o.dims, o.minQuestions, o.maxQuestions)
	raw, err := o.gen.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("plan questions: %v: %w", err, interview.ErrOracleUnavailable)
	}

	questions, err := parseQuestionPlan(raw)
	if err != nil || len(questions) == 0 {
		o.logger.Warn("falling back to seed questions",
			zap.String("session_id", req.SessionID),
			zap.String("raw_preview", truncate(raw, 200)),
			zap.Error(err),
		)
		questions = seedQuestions(req.JobTitle)
	}
	if len(questions) > o.maxQuestions {
		questions = questions[:o.maxQuestions]
	}

	o.mu.Lock()
	o.prunePlansLocked()
	o.plans[req.SessionID] = questionPlan{questions: questions, createdAt: time.Now()}
	o.mu.Unlock()

	return questions, nil
}

func (o *llmOracle) dropPlan(sessionID string) {
	o.mu.Lock()
	delete(o.plans, sessionID)
	o.mu.Unlock()
}

// prunePlansLocked drops plans for sessions that never finished, e.g.
// abandoned interviews the registry has already expired.
func (o *llmOracle) prunePlansLocked() {
	cutoff := time.Now().Add(-planTTL)
	for id, plan := range o.plans {
		if plan.createdAt.Before(cutoff) {
			delete(o.plans, id)
		}
	}
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
