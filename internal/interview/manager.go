package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/skywalker0803r/AIInterviewer-backend/internal/observability"
)

// DefaultDimensions are the evaluation axes used when no override is
// configured.
var DefaultDimensions = []string{
	"technical depth",
	"leadership",
	"communication",
	"stress tolerance",
	"problem solving",
	"learning ability",
	"teamwork",
	"creativity",
}

const defaultClosingMessage = "Thank you for coming to the interview today. This concludes the interview."

// Config tunes the interview flow.
type Config struct {
	Dimensions        []string
	DimensionWeights  map[string]float64
	MaxQuestions      int
	HireThreshold     float64
	PerTurnEvaluation bool
	OracleTimeout     time.Duration
	TranscribeTimeout time.Duration
	NarrateTimeout    time.Duration
	ClosingMessage    string
}

func (c *Config) applyDefaults() {
	if len(c.Dimensions) == 0 {
		c.Dimensions = DefaultDimensions
	}
	if c.MaxQuestions <= 0 {
		c.MaxQuestions = 8
	}
	if c.HireThreshold <= 0 {
		c.HireThreshold = 3.5
	}
	if c.OracleTimeout <= 0 {
		c.OracleTimeout = 30 * time.Second
	}
	if c.TranscribeTimeout <= 0 {
		c.TranscribeTimeout = 60 * time.Second
	}
	if c.NarrateTimeout <= 0 {
		c.NarrateTimeout = 30 * time.Second
	}
	if strings.TrimSpace(c.ClosingMessage) == "" {
		c.ClosingMessage = defaultClosingMessage
	}
}

// Manager sequences question generation and answer evaluation for every
// session. All mutations of a session happen while holding its lock, so a
// submitAnswer and a concurrent endInterview on the same session cannot
// interleave.
type Manager struct {
	registry    *Registry
	oracle      Oracle
	transcriber Transcriber
	narrator    Narrator
	metrics     *observability.Metrics
	logger      *zap.Logger
	cfg         Config
	onComplete  func(Snapshot)
}

func NewManager(registry *Registry, oracle Oracle, transcriber Transcriber, narrator Narrator, metrics *observability.Metrics, logger *zap.Logger, cfg Config) *Manager {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		registry:    registry,
		oracle:      oracle,
		transcriber: transcriber,
		narrator:    narrator,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
	}
}

// SetCompletionHook registers a callback invoked (asynchronously) with a
// snapshot of every session that reaches COMPLETED.
func (m *Manager) SetCompletionHook(hook func(Snapshot)) {
	m.onComplete = hook
}

type StartResult struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
	AudioURL  string `json:"audio_url,omitempty"`
}

type AnswerResult struct {
	SessionID      string  `json:"session_id"`
	Transcript     string  `json:"transcript"`
	NextQuestion   string  `json:"next_question,omitempty"`
	AudioURL       string  `json:"audio_url,omitempty"`
	ClosingMessage string  `json:"closing_message,omitempty"`
	Report         *Report `json:"report,omitempty"`
}

// Start creates a session, asks the oracle for an opening question and
// returns both. On oracle failure the session is discarded and no id is
// handed out.
func (m *Manager) Start(ctx context.Context, jobTitle, jobDescription string) (*StartResult, error) {
	if strings.TrimSpace(jobDescription) == "" {
		return nil, errors.New("job description is required")
	}
	if strings.TrimSpace(jobTitle) == "" {
		jobTitle = "the position"
	}

	sess := NewSession(jobTitle, jobDescription)

	qctx, cancel := context.WithTimeout(ctx, m.cfg.OracleTimeout)
	defer cancel()
	q, err := m.oracle.NextQuestion(qctx, QuestionRequest{
		SessionID:      sess.ID,
		JobTitle:       sess.JobTitle,
		JobDescription: sess.JobDescription,
	})
	if err != nil {
		m.oracleRequest("next_question", "error")
		return nil, fmt.Errorf("session %s: %w", sess.ID, err)
	}
	m.oracleRequest("next_question", "ok")
	if q.Exhausted || strings.TrimSpace(q.Text) == "" {
		m.providerError("oracle", "empty_question")
		return nil, fmt.Errorf("session %s: oracle produced no opening question: %w", sess.ID, ErrOracleUnavailable)
	}

	audioURL := m.narrate(ctx, sess.ID, q.Text)

	sess.State = StateAwaitingAnswer
	sess.CurrentQuestion = q.Text
	sess.CurrentAudioRef = audioURL
	sess.CurrentAskedAt = time.Now().UTC()
	m.registry.Insert(sess)

	m.countEvent("created")
	m.setActiveGauge()
	m.logger.Info("interview started",
		zap.String("session_id", sess.ID),
		zap.String("job_title", sess.JobTitle),
	)

	return &StartResult{SessionID: sess.ID, Question: q.Text, AudioURL: audioURL}, nil
}

// SubmitAnswer runs the transcribe -> evaluate/next-question -> narrate
// pipeline for one answer. Transcription and narration failures degrade
// gracefully; an oracle failure rolls the session back to its pre-call
// state so the caller may retry.
func (m *Manager) SubmitAnswer(ctx context.Context, sessionID string, audio []byte) (*AnswerResult, error) {
	sess, err := m.registry.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touch()

	if sess.State != StateAwaitingAnswer {
		return nil, fmt.Errorf("session %s is %s: %w", sessionID, sess.State, ErrInvalidState)
	}

	prevHistoryLen := len(sess.History)
	prevQuestion := sess.CurrentQuestion
	prevAudioRef := sess.CurrentAudioRef
	rollback := func() {
		sess.History = sess.History[:prevHistoryLen]
		sess.CurrentQuestion = prevQuestion
		sess.CurrentAudioRef = prevAudioRef
		sess.State = StateAwaitingAnswer
	}

	sess.State = StateEvaluating
	started := time.Now()

	answerText := m.transcribe(ctx, sessionID, audio)

	turn := Turn{
		Question:   sess.CurrentQuestion,
		AnswerText: answerText,
		AudioRef:   sess.CurrentAudioRef,
		AskedAt:    sess.CurrentAskedAt,
		AnsweredAt: time.Now().UTC(),
	}
	if m.cfg.PerTurnEvaluation && answerText != "" {
		turn.Scores = m.evaluateTurn(ctx, sess, turn)
	}
	sess.History = append(sess.History, turn)

	var next Question
	if len(sess.History) >= m.cfg.MaxQuestions {
		next = Question{Exhausted: true}
	} else {
		qctx, cancel := context.WithTimeout(ctx, m.cfg.OracleTimeout)
		next, err = m.oracle.NextQuestion(qctx, QuestionRequest{
			SessionID:      sess.ID,
			JobTitle:       sess.JobTitle,
			JobDescription: sess.JobDescription,
			History:        append([]Turn(nil), sess.History...),
		})
		cancel()
		if err != nil {
			rollback()
			m.oracleRequest("next_question", "error")
			return nil, fmt.Errorf("session %s: %w", sessionID, err)
		}
		m.oracleRequest("next_question", "ok")
	}

	result := &AnswerResult{SessionID: sessionID, Transcript: answerText}

	if !next.Exhausted {
		audioURL := m.narrate(ctx, sessionID, next.Text)
		sess.CurrentQuestion = next.Text
		sess.CurrentAudioRef = audioURL
		sess.CurrentAskedAt = time.Now().UTC()
		sess.State = StateAwaitingAnswer

		result.NextQuestion = next.Text
		result.AudioURL = audioURL
		m.observeAnswerLatency(time.Since(started))
		return result, nil
	}

	report, err := m.buildReport(ctx, sess)
	if err != nil {
		rollback()
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}

	sess.Report = report
	sess.State = StateCompleted
	sess.CurrentQuestion = ""
	sess.CurrentAudioRef = ""

	result.ClosingMessage = m.cfg.ClosingMessage
	result.AudioURL = m.narrate(ctx, sessionID, m.cfg.ClosingMessage)
	reportCopy := *report
	result.Report = &reportCopy

	m.observeAnswerLatency(time.Since(started))
	m.finishSession(sess)
	return result, nil
}

// EndInterview closes a session early and produces a report over whatever
// history has accumulated. Idempotent once the session is completed.
func (m *Manager) EndInterview(ctx context.Context, sessionID string) (*Report, error) {
	sess, err := m.registry.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touch()

	switch sess.State {
	case StateCompleted:
		reportCopy := *sess.Report
		return &reportCopy, nil
	case StateAborted:
		return nil, fmt.Errorf("session %s is %s: %w", sessionID, sess.State, ErrInvalidState)
	}

	prevState := sess.State
	sess.State = StateEvaluating

	report, err := m.buildReport(ctx, sess)
	if err != nil {
		sess.State = prevState
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}

	sess.Report = report
	sess.State = StateCompleted
	sess.CurrentQuestion = ""
	sess.CurrentAudioRef = ""

	m.finishSession(sess)
	reportCopy := *report
	return &reportCopy, nil
}

// GetReport returns the report of a completed session.
func (m *Manager) GetReport(sessionID string) (*Report, error) {
	sess, err := m.registry.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touch()

	if sess.State != StateCompleted || sess.Report == nil {
		return nil, fmt.Errorf("session %s is %s: %w", sessionID, sess.State, ErrReportNotReady)
	}
	reportCopy := *sess.Report
	return &reportCopy, nil
}

// GetSession returns a read-only snapshot of a session.
func (m *Manager) GetSession(sessionID string) (Snapshot, error) {
	sess, err := m.registry.Get(sessionID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("session %s: %w", sessionID, err)
	}
	return sess.Snapshot(), nil
}

// buildReport evaluates the accumulated history and assembles the report.
// Caller holds the session lock.
func (m *Manager) buildReport(ctx context.Context, sess *Session) (*Report, error) {
	var dims map[string]DimensionScore

	switch {
	case len(sess.History) == 0:
		// Nothing to evaluate: a minimal zero-turn report rather than a failure.
		dims = make(map[string]DimensionScore, len(m.cfg.Dimensions))
		for _, d := range m.cfg.Dimensions {
			dims[d] = DimensionScore{}
		}
	case m.cfg.PerTurnEvaluation && hasTurnScores(sess.History):
		dims = aggregateTurnScores(m.cfg.Dimensions, sess.History)
	default:
		ectx, cancel := context.WithTimeout(ctx, m.cfg.OracleTimeout)
		defer cancel()
		scores, err := m.oracle.Evaluate(ectx, EvaluationRequest{
			SessionID:      sess.ID,
			JobTitle:       sess.JobTitle,
			JobDescription: sess.JobDescription,
			History:        append([]Turn(nil), sess.History...),
			Dimensions:     m.cfg.Dimensions,
		})
		if err != nil {
			m.oracleRequest("evaluate", "error")
			return nil, err
		}
		m.oracleRequest("evaluate", "ok")
		dims = scores
	}

	overall := overallScore(dims, m.cfg.DimensionWeights)
	return &Report{
		SessionID:       sess.ID,
		OverallScore:    overall,
		DimensionScores: dims,
		TurnCount:       answeredTurns(sess.History),
		Hired:           overall >= m.cfg.HireThreshold,
		GeneratedAt:     time.Now().UTC(),
	}, nil
}

// finishSession records completion metrics and fires the completion hook.
// Caller holds the session lock.
func (m *Manager) finishSession(sess *Session) {
	m.registry.markTerminal()
	m.countEvent("completed")
	m.setActiveGauge()
	m.logger.Info("interview completed",
		zap.String("session_id", sess.ID),
		zap.Int("turns", len(sess.History)),
		zap.Float64("overall_score", sess.Report.OverallScore),
	)
	if m.onComplete != nil {
		snap := sess.snapshot()
		go m.onComplete(snap)
	}
}

// transcribe converts audio to text, absorbing failures into an empty
// answer so the interview can continue.
func (m *Manager) transcribe(ctx context.Context, sessionID string, audio []byte) string {
	if len(audio) == 0 {
		return ""
	}
	tctx, cancel := context.WithTimeout(ctx, m.cfg.TranscribeTimeout)
	defer cancel()

	text, err := m.transcriber.Transcribe(tctx, audio)
	if err != nil {
		m.providerError("transcriber", "transcribe")
		m.logger.Warn("transcription failed, recording empty answer",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return ""
	}
	return strings.TrimSpace(text)
}

// narrate synthesizes question audio, best effort. An empty ref means the
// caller falls back to text only.
func (m *Manager) narrate(ctx context.Context, sessionID, text string) string {
	if m.narrator == nil || strings.TrimSpace(text) == "" {
		return ""
	}
	nctx, cancel := context.WithTimeout(ctx, m.cfg.NarrateTimeout)
	defer cancel()

	ref, err := m.narrator.Synthesize(nctx, text)
	if err != nil {
		m.providerError("narrator", "synthesize")
		m.logger.Warn("narration failed, continuing without audio",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return ""
	}
	return ref
}

// evaluateTurn scores a single answer; invalid oracle output is dropped, as
// the final report can still be produced from the remaining turns.
func (m *Manager) evaluateTurn(ctx context.Context, sess *Session, turn Turn) map[string]float64 {
	ectx, cancel := context.WithTimeout(ctx, m.cfg.OracleTimeout)
	defer cancel()

	scores, err := m.oracle.Evaluate(ectx, EvaluationRequest{
		SessionID:      sess.ID,
		JobTitle:       sess.JobTitle,
		JobDescription: sess.JobDescription,
		History:        []Turn{turn},
		Dimensions:     m.cfg.Dimensions,
	})
	if err != nil {
		m.providerError("oracle", "evaluate_turn")
		m.logger.Warn("per-turn evaluation failed",
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
		return nil
	}

	flat := make(map[string]float64, len(scores))
	for dim, ds := range scores {
		flat[dim] = ds.Score
	}
	return flat
}

func (m *Manager) countEvent(event string) {
	if m.metrics != nil {
		m.metrics.SessionEvents.WithLabelValues(event).Inc()
	}
}

func (m *Manager) setActiveGauge() {
	if m.metrics != nil {
		m.metrics.ActiveSessions.Set(float64(m.registry.ActiveCount()))
	}
}

func (m *Manager) oracleRequest(op, outcome string) {
	if m.metrics != nil {
		m.metrics.OracleRequests.WithLabelValues(op, outcome).Inc()
	}
}

func (m *Manager) providerError(provider, code string) {
	if m.metrics != nil {
		m.metrics.ProviderErrors.WithLabelValues(provider, code).Inc()
	}
}

func (m *Manager) observeAnswerLatency(d time.Duration) {
	if m.metrics != nil {
		m.metrics.ObserveAnswerLatency(d)
	}
}
