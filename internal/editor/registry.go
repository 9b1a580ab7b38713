package editor

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Registry holds one mounted session per survey.
type Registry struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	backend  Backend
	opts     Options
}

// NewRegistry creates an empty registry.
func NewRegistry(backend Backend, opts Options) *Registry {
	return &Registry{
		sessions: make(map[uuid.UUID]*Session),
		backend:  backend,
		opts:     opts,
	}
}

// Mount returns the session for a survey, loading it on first use.
// A failed first load still mounts the session so the page-level error can be shown.
func (r *Registry) Mount(ctx context.Context, surveyID uuid.UUID) (*Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[surveyID]
	if !ok {
		s = NewSession(surveyID, r.backend, r.opts)
		r.sessions[surveyID] = s
	}
	r.mu.Unlock()
	if ok {
		return s, nil
	}
	return s, s.Load(ctx)
}

// Get returns a mounted session.
func (r *Registry) Get(surveyID uuid.UUID) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[surveyID]
	return s, ok
}

// Unmount drops a session.
func (r *Registry) Unmount(surveyID uuid.UUID) {
	r.mu.Lock()
	delete(r.sessions, surveyID)
	r.mu.Unlock()
}

// Len returns the number of mounted sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
