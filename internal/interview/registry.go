package interview

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Registry owns the in-process session map and its lifecycle. Sessions are
// transient; a process restart loses them all. The active counter is kept
// separately from the map so readers never contend with per-session locks.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	active      atomic.Int64
	idleTimeout time.Duration
	retention   time.Duration
	onExpire    func(Snapshot)
}

func NewRegistry(idleTimeout time.Duration) *Registry {
	if idleTimeout <= 0 {
		idleTimeout = 5 * time.Minute
	}
	return &Registry{
		sessions:    make(map[string]*Session),
		idleTimeout: idleTimeout,
		retention:   10 * time.Minute,
	}
}

// SetRetention controls how long terminal sessions stay resolvable before
// the janitor drops them. Clients polling a stale id must be prepared for
// ErrSessionNotFound afterward.
func (r *Registry) SetRetention(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d > 0 {
		r.retention = d
	}
}

func (r *Registry) SetExpireHook(hook func(Snapshot)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onExpire = hook
}

func (r *Registry) Insert(s *Session) {
	s.mu.Lock()
	active := !s.State.Terminal()
	s.mu.Unlock()

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	if active {
		r.active.Add(1)
	}
}

func (r *Registry) Get(sessionID string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (r *Registry) Touch(sessionID string) error {
	s, err := r.Get(sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return nil
}

func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()
	if !ok {
		return
	}

	s.mu.Lock()
	terminal := s.State.Terminal()
	s.mu.Unlock()
	if !terminal {
		r.active.Add(-1)
	}
}

// ActiveCount reports the number of non-terminal sessions. It reads a
// counter instead of walking the map, so callers that hold a session lock
// (or a readiness probe racing a slow oracle call) never block here.
func (r *Registry) ActiveCount() int {
	return int(r.active.Load())
}

// markTerminal records one session leaving the active set. Called exactly
// once per session, at its transition into a terminal state.
func (r *Registry) markTerminal() {
	r.active.Add(-1)
}

// StartJanitor periodically aborts idle sessions and drops terminal ones
// past the retention window.
func (r *Registry) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.ExpireIdle()
			}
		}
	}()
}

// ExpireIdle scans all sessions once. Idle non-terminal sessions are marked
// ABORTED; terminal sessions beyond the retention window are removed.
func (r *Registry) ExpireIdle() {
	r.mu.RLock()
	candidates := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		candidates = append(candidates, s)
	}
	idleTimeout := r.idleTimeout
	retention := r.retention
	hook := r.onExpire
	r.mu.RUnlock()

	now := time.Now().UTC()
	var expired []Snapshot
	var stale []string

	for _, s := range candidates {
		s.mu.Lock()
		switch {
		case !s.State.Terminal() && now.Sub(s.LastActivityAt) >= idleTimeout:
			s.State = StateAborted
			s.CurrentQuestion = ""
			s.CurrentAudioRef = ""
			s.LastActivityAt = now
			r.markTerminal()
			expired = append(expired, s.snapshot())
		case s.State.Terminal() && now.Sub(s.LastActivityAt) >= retention:
			stale = append(stale, s.ID)
		}
		s.mu.Unlock()
	}

	if len(stale) > 0 {
		r.mu.Lock()
		for _, id := range stale {
			delete(r.sessions, id)
		}
		r.mu.Unlock()
	}

	if hook != nil {
		for _, snap := range expired {
			hook(snap)
		}
	}
}
