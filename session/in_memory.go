package session

import (
	"sync"

	"github.com/caremesh/caremesh/core"
)

// InMemoryStore is a volatile SessionStore implementation storing workflow
// contexts in a process local map. It is safe for concurrent access and best
// suited for single-process deployments; sessions do not survive a restart.
// The store returns the live context pointer; per-context state is guarded
// by the WorkflowContext itself, the store only synchronizes table
// membership.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.WorkflowContext
}

// NewInMemoryStore constructs an empty in-memory session table.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*core.WorkflowContext)}
}

// Put registers (or overwrites) the context under its session id.
func (s *InMemoryStore) Put(wctx *core.WorkflowContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[wctx.SessionID] = wctx
	return nil
}

// Get returns the live context or core.ErrSessionNotFound.
func (s *InMemoryStore) Get(sessionID string) (*core.WorkflowContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wctx, ok := s.sessions[sessionID]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	return wctx, nil
}

// Remove deletes the session and returns the removed context, or
// core.ErrSessionNotFound when the id is absent.
func (s *InMemoryStore) Remove(sessionID string) (*core.WorkflowContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wctx, ok := s.sessions[sessionID]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	return wctx, nil
}

// List returns a snapshot slice of all live contexts. The slice is safe for
// caller mutation; the contexts are the live instances.
func (s *InMemoryStore) List() []*core.WorkflowContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*core.WorkflowContext, 0, len(s.sessions))
	for _, wctx := range s.sessions {
		out = append(out, wctx)
	}
	return out
}
