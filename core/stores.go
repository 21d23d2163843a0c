package core

import (
	"context"
	"time"
)

// SessionStore is the live session table mapping session ids to their
// workflow contexts. Implementations return the live *WorkflowContext (the
// context guards its own state); the store only synchronizes table
// membership.
type SessionStore interface {
	Put(wctx *WorkflowContext) error
	// Get returns the context or ErrSessionNotFound.
	Get(sessionID string) (*WorkflowContext, error)
	// Remove deletes the session and returns the removed context, or
	// ErrSessionNotFound when the id is absent.
	Remove(sessionID string) (*WorkflowContext, error)
	// List returns a snapshot of all live contexts.
	List() []*WorkflowContext
}

// AuditEntry is the durable record handed to an AuditSink when a session
// completes or an emergency alert fires. Data carries the serializable
// payload; Kind discriminates between record types.
type AuditEntry struct {
	Kind      string         `json:"kind"`
	RefID     string         `json:"ref_id"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// Audit entry kinds.
const (
	AuditKindWorkflow = "workflow"
	AuditKindAlert    = "alert"
)

// AuditSink persists completed sessions and emergency alerts. The engine only
// guarantees the sink is invoked; delivery failures are logged, never
// propagated into workflow execution.
type AuditSink interface {
	Store(ctx context.Context, entry AuditEntry) error
}

// WorkflowAuditEntry builds the audit record for a completed (or force
// completed) session, embedding the blackboard and the full metadata bag.
func WorkflowAuditEntry(wctx *WorkflowContext) AuditEntry {
	board := wctx.Board()
	return AuditEntry{
		Kind:      AuditKindWorkflow,
		RefID:     wctx.SessionID,
		Timestamp: time.Now().UTC(),
		Data: map[string]any{
			"workflow_type": string(wctx.Type),
			"blackboard":    board,
			"metadata":      wctx.MetadataSnapshot(),
			"created_at":    wctx.CreatedAt(),
			"updated_at":    wctx.UpdatedAt(),
			"failed":        wctx.Failed(),
		},
	}
}
