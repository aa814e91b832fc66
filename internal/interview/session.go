package interview

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is one interview attempt. Its mutable fields are guarded by mu,
// which an operation holds for its full duration so that concurrent calls
// on the same session serialize instead of interleaving.
type Session struct {
	mu sync.Mutex

	ID              string
	JobTitle        string
	JobDescription  string
	State           State
	History         []Turn
	CurrentQuestion string
	CurrentAudioRef string
	CurrentAskedAt  time.Time
	Report          *Report
	CreatedAt       time.Time
	LastActivityAt  time.Time
}

func NewSession(jobTitle, jobDescription string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:             uuid.NewString(),
		JobTitle:       jobTitle,
		JobDescription: jobDescription,
		State:          StateCreated,
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// snapshot copies the session for callers outside the package. Caller must
// hold s.mu.
func (s *Session) snapshot() Snapshot {
	history := make([]Turn, len(s.History))
	copy(history, s.History)

	var report *Report
	if s.Report != nil {
		r := *s.Report
		report = &r
	}

	return Snapshot{
		ID:              s.ID,
		JobTitle:        s.JobTitle,
		JobDescription:  s.JobDescription,
		State:           s.State,
		History:         history,
		CurrentQuestion: s.CurrentQuestion,
		CurrentAudioRef: s.CurrentAudioRef,
		Report:          report,
		CreatedAt:       s.CreatedAt,
		LastActivityAt:  s.LastActivityAt,
	}
}

// Snapshot locks the session and returns a copy.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) touch() {
	s.LastActivityAt = time.Now().UTC()
}
