package core

import "context"

// Agent is the capability contract every pipeline member implements.
//
// Agents are long-lived and shared across sessions: any mutable state they
// hold (capacity counters, caches) is process-wide and must be guarded by the
// implementation. Process must not assume any particular prior agent has run;
// every metadata field is optional and absent values get a documented default.
//
// Safety-relevant agents (triage, admission) must not return an error from
// Process for internal faults: they degrade to the most conservative result
// instead, because an empty or failed assessment must never be mistaken for
// "no concern". An error returned from Process aborts the remaining pipeline.
type Agent interface {
	Name() string
	Process(ctx context.Context, wctx *WorkflowContext) (Result, error)
	EmergencyProcess(ctx context.Context, wctx *WorkflowContext, override map[string]any) (Result, error)
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
