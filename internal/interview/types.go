package interview

import (
	"context"
	"errors"
	"time"
)

// State tracks where a session is in the interview flow. Transitions only
// move forward except for the EVALUATING -> AWAITING_ANSWER recovery path
// taken when an in-flight operation fails.
type State string

const (
	StateCreated        State = "created"
	StateAwaitingAnswer State = "awaiting_answer"
	StateEvaluating     State = "evaluating"
	StateCompleted      State = "completed"
	StateAborted        State = "aborted"
)

func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAborted
}

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidState      = errors.New("operation not allowed in current session state")
	ErrReportNotReady    = errors.New("report not ready")
	ErrOracleUnavailable = errors.New("oracle unavailable")
	ErrTranscription     = errors.New("transcription failed")
	ErrNarration         = errors.New("narration failed")
)

// Turn is one question/answer exchange within a session.
type Turn struct {
	Question   string             `json:"question"`
	AnswerText string             `json:"answer_text"`
	Scores     map[string]float64 `json:"scores,omitempty"`
	AudioRef   string             `json:"audio_ref,omitempty"`
	AskedAt    time.Time          `json:"asked_at"`
	AnsweredAt time.Time          `json:"answered_at"`
}

// DimensionScore is the oracle's verdict for a single evaluation dimension.
type DimensionScore struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback,omitempty"`
}

// Report is the final scoring artifact for a session. Immutable once built.
type Report struct {
	SessionID       string                    `json:"session_id"`
	OverallScore    float64                   `json:"overall_score"`
	DimensionScores map[string]DimensionScore `json:"dimension_scores"`
	TurnCount       int                       `json:"turn_count"`
	Hired           bool                      `json:"hired"`
	GeneratedAt     time.Time                 `json:"generated_at"`
}

// Snapshot is a read-only copy of a session handed to callers outside the
// package. The live Session is never exposed.
type Snapshot struct {
	ID              string    `json:"session_id"`
	JobTitle        string    `json:"job_title"`
	JobDescription  string    `json:"job_description"`
	State           State     `json:"state"`
	History         []Turn    `json:"history"`
	CurrentQuestion string    `json:"current_question,omitempty"`
	CurrentAudioRef string    `json:"current_audio_ref,omitempty"`
	Report          *Report   `json:"report,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	LastActivityAt  time.Time `json:"last_activity_at"`
}

// QuestionRequest carries the context the oracle needs to produce the next
// question for a session.
type QuestionRequest struct {
	SessionID      string
	JobTitle       string
	JobDescription string
	History        []Turn
}

// Question is the oracle's answer to a QuestionRequest. Exhausted signals
// that the interview has no further questions.
type Question struct {
	Text      string
	Exhausted bool
}

// EvaluationRequest asks the oracle to score an answer history across the
// configured dimensions.
type EvaluationRequest struct {
	SessionID      string
	JobTitle       string
	JobDescription string
	History        []Turn
	Dimensions     []string
}

// Oracle generates interview questions and evaluates answers. Implementations
// wrap failures in ErrOracleUnavailable.
type Oracle interface {
	NextQuestion(ctx context.Context, req QuestionRequest) (Question, error)
	Evaluate(ctx context.Context, req EvaluationRequest) (map[string]DimensionScore, error)
}

// Transcriber converts spoken audio into text. Implementations wrap failures
// in ErrTranscription.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Narrator synthesizes speech for a question and returns a retrievable
// audio reference. Failures are best-effort for callers; implementations
// wrap them in ErrNarration.
type Narrator interface {
	Synthesize(ctx context.Context, text string) (string, error)
}
