package audit

import (
	"context"
	"sync"

	"github.com/caremesh/caremesh/core"
)

// InMemorySink is a trivial in-process AuditSink implementation useful for
// tests, examples and single-process prototypes. Entries are kept in an
// append-only slice guarded by an RWMutex and never mutated after storage.
//
// This implementation is intentionally minimal; it does not enforce retention
// limits or eviction. For production, prefer a durable implementation (e.g.
// the redis subpackage or a database) that survives process restarts.
type InMemorySink struct {
	mu      sync.RWMutex
	entries []core.AuditEntry
}

// NewInMemorySink returns an empty in-memory audit sink.
func NewInMemorySink() *InMemorySink {
	return &InMemorySink{}
}

// Store appends the entry to the log.
func (s *InMemorySink) Store(_ context.Context, entry core.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// Entries returns a snapshot copy of all stored entries.
func (s *InMemorySink) Entries() []core.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.AuditEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// ByKind returns a snapshot of entries matching the given kind, preserving
// storage order.
func (s *InMemorySink) ByKind(kind string) []core.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.AuditEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
