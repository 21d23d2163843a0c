package core

import (
	"sync"
	"time"
)

// WorkflowContext is the mutable, session-scoped state threaded through an
// agent pipeline. It is safe for concurrent access: the pipeline goroutine
// mutates it between steps while status queries snapshot it.
//
// Contract:
//   - SessionID and Type are immutable after creation
//   - ApplyResult merges agent output and refreshes the Updated timestamp
//   - Metadata is an independent map per instance; mutating one context is
//     never observable in another, even when two contexts are created from
//     the same initial data
//   - Snapshot returns copies; callers can never reach the internal map
type WorkflowContext struct {
	SessionID string
	Type      WorkflowType

	mu       sync.RWMutex
	board    Blackboard
	metadata map[string]any
	created  time.Time
	updated  time.Time
	failed   bool
	errMsg   string
}

// NewWorkflowContext creates a context for a freshly started session. The
// initial data is copied into a fresh metadata map so the caller's map and
// sibling sessions never share mutable state.
func NewWorkflowContext(sessionID string, typ WorkflowType, initial map[string]any) *WorkflowContext {
	now := time.Now().UTC()
	md := make(map[string]any, len(initial))
	for k, v := range initial {
		md[k] = v
	}
	return &WorkflowContext{
		SessionID: sessionID,
		Type:      typ,
		board:     Blackboard{Version: BlackboardVersion},
		metadata:  md,
		created:   now,
		updated:   now,
	}
}

// ApplyResult merges an agent result into the context: Fields go into the
// metadata bag (last-write-wins on key collision) and typed fields are
// promoted onto the blackboard. The Updated timestamp is refreshed.
func (c *WorkflowContext) ApplyResult(r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range r.Fields {
		c.metadata[k] = v
	}
	c.board.merge(r)
	c.updated = time.Now().UTC()
}

// Meta returns the value and existence flag for a metadata key.
func (c *WorkflowContext) Meta(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.metadata[key]
	return v, ok
}

// MetaString returns the metadata value for key as a string, or "" when the
// key is absent or not a string. Agents must treat every metadata field as
// optional, so the zero value doubles as the documented default.
func (c *WorkflowContext) MetaString(key string) string {
	v, ok := c.Meta(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// MetaBool returns the metadata value for key as a bool, defaulting to false.
func (c *WorkflowContext) MetaBool(key string) bool {
	v, ok := c.Meta(key)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// MetaMap returns the metadata value for key as a map, or nil when absent or
// of a different shape.
func (c *WorkflowContext) MetaMap(key string) map[string]any {
	v, ok := c.Meta(key)
	if !ok {
		return nil
	}
	m, _ := v.(map[string]any)
	return m
}

// SetMeta writes a single metadata key and refreshes the Updated timestamp.
func (c *WorkflowContext) SetMeta(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metadata[key] = value
	c.updated = time.Now().UTC()
}

// MetadataSnapshot returns a shallow copy of the metadata bag.
func (c *WorkflowContext) MetadataSnapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp := make(map[string]any, len(c.metadata))
	for k, v := range c.metadata {
		cp[k] = v
	}
	return cp
}

// Board returns a copy of the current blackboard.
func (c *WorkflowContext) Board() Blackboard {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b := c.board
	if c.board.LegalCase != nil {
		v := *c.board.LegalCase
		b.LegalCase = &v
	}
	return b
}

// MarkFailed stamps the error and its timestamp into the metadata bag and
// transitions the session into the failed state. The session stays queryable;
// visible partial failure is preferred over silent loss.
func (c *WorkflowContext) MarkFailed(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failed = true
	c.errMsg = err.Error()
	c.metadata["error"] = err.Error()
	c.metadata["error_timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	c.updated = time.Now().UTC()
}

// Failed reports whether the pipeline aborted with an error.
func (c *WorkflowContext) Failed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.failed
}

// CreatedAt returns the creation timestamp.
func (c *WorkflowContext) CreatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.created
}

// UpdatedAt returns the timestamp of the last mutation.
func (c *WorkflowContext) UpdatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updated
}

// Status is the read-only snapshot of a context's public fields returned to
// callers polling a workflow. The raw metadata bag is deliberately not
// exposed here.
type Status struct {
	SessionID      string         `json:"session_id"`
	WorkflowType   WorkflowType   `json:"workflow_type"`
	EmergencyLevel EmergencyLevel `json:"emergency_level,omitempty"`
	PatientID      string         `json:"patient_id,omitempty"`
	LegalCase      *bool          `json:"legal_case,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	State          string         `json:"state"`
	Error          string         `json:"error,omitempty"`
}

// Snapshot builds a Status from the current context state. State is "active"
// for a live session and "failed" after a pipeline abort.
func (c *WorkflowContext) Snapshot() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	state := "active"
	if c.failed {
		state = "failed"
	}
	var legal *bool
	if c.board.LegalCase != nil {
		v := *c.board.LegalCase
		legal = &v
	}
	return Status{
		SessionID:      c.SessionID,
		WorkflowType:   c.Type,
		EmergencyLevel: c.board.EmergencyLevel,
		PatientID:      c.board.PatientID,
		LegalCase:      legal,
		CreatedAt:      c.created,
		UpdatedAt:      c.updated,
		State:          state,
		Error:          c.errMsg,
	}
}
