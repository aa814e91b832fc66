package archive

import (
	"context"
	"time"

	"github.com/skywalker0803r/AIInterviewer-backend/internal/interview"
)

// Record is one completed interview kept beyond the session's in-process
// lifetime.
type Record struct {
	ID              string                              `json:"id"`
	JobTitle        string                              `json:"job_title"`
	JobDescription  string                              `json:"job_description"`
	OverallScore    float64                             `json:"overall_score"`
	DimensionScores map[string]interview.DimensionScore `json:"dimension_scores"`
	TurnCount       int                                 `json:"turn_count"`
	Hired           bool                                `json:"hired"`
	Transcript      []interview.Turn                    `json:"transcript"`
	CompletedAt     time.Time                           `json:"completed_at"`
}

// Store persists completed interviews. Writes are best-effort; the live
// session flow never depends on them.
type Store interface {
	SaveInterview(ctx context.Context, rec Record) error
	RecentInterviews(ctx context.Context, limit int) ([]Record, error)
	Close() error
}
