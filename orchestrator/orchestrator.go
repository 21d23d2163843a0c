// Package orchestrator runs patient-encounter workflows: it owns the session
// table, the pipeline definitions and the agent registry, and executes each
// session's agent sequence on its own goroutine.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/caremesh/caremesh/agent"
	"github.com/caremesh/caremesh/core"
	"github.com/caremesh/caremesh/logging"
	"github.com/caremesh/caremesh/session"
)

// FailureNotifier is implemented by agents that can report a pipeline abort
// to the outside world. The orchestrator invokes it best-effort on the first
// registered agent that provides it.
type FailureNotifier interface {
	NotifyFailure(ctx context.Context, wctx *core.WorkflowContext, cause error)
}

// Options configure an Orchestrator.
type Options struct {
	// Sessions is the live session table. Defaults to the in-memory store.
	Sessions core.SessionStore
	// Audit receives one workflow record per completed session. Optional.
	Audit core.AuditSink

	Logger logging.Logger

	// Pipelines overrides the default workflow-type to agent-sequence table.
	Pipelines map[core.WorkflowType][]string
}

// Orchestrator coordinates agents over shared workflow sessions. Safe for
// concurrent use: the registry and pipeline table are immutable after Start
// is first called, sessions guard their own state, and run goroutines are
// tracked so Shutdown can drain them deterministically.
type Orchestrator struct {
	sessions core.SessionStore
	audit    core.AuditSink
	logger   logging.Logger

	mu        sync.RWMutex
	agents    map[string]core.Agent
	pipelines map[core.WorkflowType][]string
	closed    bool

	wg sync.WaitGroup
}

// DefaultPipelines returns the standard agent sequence per workflow type.
func DefaultPipelines() map[core.WorkflowType][]string {
	return map[core.WorkflowType][]string{
		core.WorkflowEmergency: {
			agent.NameTriage, agent.NameAdmission, agent.NameLegal, agent.NameMedicalRecords,
			agent.NameSmartDevice, agent.NameBilling, agent.NameCommunication, agent.NameScheduling,
		},
		core.WorkflowRegular: {
			agent.NameAdmission, agent.NameTriage, agent.NameMedicalRecords, agent.NameSmartDevice,
			agent.NameBilling, agent.NameScheduling, agent.NameCommunication,
		},
		core.WorkflowDeviceScan: {
			agent.NameSmartDevice, agent.NameMedicalRecords, agent.NameCommunication,
		},
		core.WorkflowEmergencyDevice: {
			agent.NameSmartDevice, agent.NameTriage, agent.NameCommunication, agent.NameAdmission,
		},
	}
}

// overridePipeline is the fixed synchronous sequence an emergency override
// runs through.
var overridePipeline = []string{agent.NameTriage, agent.NameAdmission, agent.NameCommunication}

// New creates an Orchestrator. Agents are registered afterwards via
// RegisterAgent.
func New(optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		Logger:    logging.NoOpLogger{},
		Pipelines: DefaultPipelines(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Sessions == nil {
		opts.Sessions = session.NewInMemoryStore()
	}

	return &Orchestrator{
		sessions:  opts.Sessions,
		audit:     opts.Audit,
		logger:    opts.Logger,
		agents:    make(map[string]core.Agent),
		pipelines: opts.Pipelines,
	}
}

// RegisterAgent adds an agent under its own name, replacing any previous
// registration.
func (o *Orchestrator) RegisterAgent(a core.Agent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.agents[a.Name()] = a
}

// RegisterPipeline installs or replaces the agent sequence for a workflow
// type.
func (o *Orchestrator) RegisterPipeline(typ core.WorkflowType, steps []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pipelines[typ] = append([]string(nil), steps...)
}

// StartWorkflow validates the workflow type, creates the session and launches
// the pipeline on its own goroutine. The session id is returned immediately;
// callers poll Status for progress. An unknown type creates no session. The
// pipeline outlives the caller: it runs on a context detached from ctx's
// cancelation (values are kept).
func (o *Orchestrator) StartWorkflow(ctx context.Context, typ core.WorkflowType, initial map[string]any) (string, error) {
	// The closed check, the table insert and the WaitGroup increment must be
	// one atomic step against Shutdown, or a session can slip in after the
	// drain and run against shut-down agents.
	o.mu.Lock()
	steps, ok := o.pipelines[typ]
	if !ok {
		o.mu.Unlock()
		return "", fmt.Errorf("%w: %s", core.ErrUnknownWorkflowType, typ)
	}
	if o.closed {
		o.mu.Unlock()
		return "", fmt.Errorf("orchestrator is shut down")
	}

	wctx := core.NewWorkflowContext(core.NewID(), typ, initial)
	if err := o.sessions.Put(wctx); err != nil {
		o.mu.Unlock()
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	o.wg.Add(1)
	o.mu.Unlock()

	o.logger.Info("workflow started session=%s type=%s steps=%d", wctx.SessionID, typ, len(steps))

	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer o.wg.Done()
		o.run(runCtx, wctx, steps)
	}()

	return wctx.SessionID, nil
}

// run executes the pipeline sequentially, merging every agent result into the
// session context. The first agent error aborts the remaining steps, marks
// the session failed and triggers the failure notification; the session stays
// in the table for inspection.
func (o *Orchestrator) run(ctx context.Context, wctx *core.WorkflowContext, steps []string) {
	start := time.Now()

	for _, name := range steps {
		a, err := o.agentByName(name)
		if err == nil {
			err = o.processStep(ctx, a, wctx)
		}
		if err != nil {
			wctx.MarkFailed(err)
			o.logRun(wctx, len(steps), time.Since(start), err)
			o.notifyFailure(ctx, wctx, err)
			return
		}
	}

	o.logRun(wctx, len(steps), time.Since(start), nil)
}

// processStep runs one agent with panic containment: a panicking agent fails
// its session, never the whole process.
func (o *Orchestrator) processStep(ctx context.Context, a core.Agent, wctx *core.WorkflowContext) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent %s panicked: %v", a.Name(), r)
			// Capture the stack here, while the panicking frames are still
			// on it.
			if cl, ok := o.logger.(*logging.CareLogger); ok {
				cl.WithSession(wctx.SessionID).ErrorWithStack(err, "agent panic contained")
			}
		}
		o.logStep(wctx, a.Name(), time.Since(start), err)
	}()

	result, err := a.Process(ctx, wctx)
	if err != nil {
		return fmt.Errorf("agent %s failed: %w", a.Name(), err)
	}
	wctx.ApplyResult(result)

	return nil
}

// Status returns the session's current public snapshot.
func (o *Orchestrator) Status(sessionID string) (core.Status, error) {
	wctx, err := o.sessions.Get(sessionID)
	if err != nil {
		return core.Status{}, err
	}
	return wctx.Snapshot(), nil
}

// Complete finalizes a session: its audit record is stored and it leaves the
// live table. Completing an already completed (or never existing) session is
// a no-op, so retries are safe.
func (o *Orchestrator) Complete(ctx context.Context, sessionID string) error {
	wctx, err := o.sessions.Remove(sessionID)
	if err != nil {
		return nil
	}

	o.storeAudit(ctx, wctx)
	o.logger.Info("workflow completed session=%s type=%s failed=%t", sessionID, wctx.Type, wctx.Failed())

	return nil
}

// EmergencyOverride escalates a live session immediately: the override
// sequence (triage, admission, communication) runs synchronously on the
// caller's goroutine and every result is merged before returning. Missing
// sessions return core.ErrSessionNotFound.
func (o *Orchestrator) EmergencyOverride(ctx context.Context, sessionID string, override map[string]any) error {
	wctx, err := o.sessions.Get(sessionID)
	if err != nil {
		return err
	}

	wctx.SetMeta("emergency_override", true)
	o.logger.Warn("emergency override session=%s", sessionID)

	for _, name := range overridePipeline {
		a, err := o.agentByName(name)
		if err != nil {
			return err
		}
		result, err := a.EmergencyProcess(ctx, wctx, override)
		if err != nil {
			return fmt.Errorf("override step %s failed: %w", name, err)
		}
		wctx.ApplyResult(result)
	}

	return nil
}

// AgentHealth checks every registered agent and reports a per-agent verdict.
// A failing or panicking health check marks the agent unhealthy; the check
// itself never raises.
func (o *Orchestrator) AgentHealth(ctx context.Context) map[string]bool {
	o.mu.RLock()
	agents := make(map[string]core.Agent, len(o.agents))
	for name, a := range o.agents {
		agents[name] = a
	}
	o.mu.RUnlock()

	health := make(map[string]bool, len(agents))
	for name, a := range agents {
		health[name] = o.checkAgent(ctx, a)
	}

	return health
}

func (o *Orchestrator) checkAgent(ctx context.Context, a core.Agent) (healthy bool) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("health check panic agent=%s: %v", a.Name(), r)
			healthy = false
		}
	}()

	if err := a.HealthCheck(ctx); err != nil {
		o.logger.Warn("health check failed agent=%s: %v", a.Name(), err)
		return false
	}

	return true
}

// Shutdown drains the orchestrator: no new workflows are accepted, running
// pipelines are waited for (bounded by ctx), every remaining session is
// completed into the audit sink, and agents are shut down best-effort.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		o.logger.Warn("shutdown proceeding with pipelines still running: %v", ctx.Err())
	}

	for _, wctx := range o.sessions.List() {
		if _, err := o.sessions.Remove(wctx.SessionID); err == nil {
			o.storeAudit(ctx, wctx)
		}
	}

	o.mu.RLock()
	defer o.mu.RUnlock()
	for name, a := range o.agents {
		if err := a.Shutdown(ctx); err != nil {
			o.logger.Error("agent shutdown failed agent=%s: %v", name, err)
		}
	}

	o.logger.Info("orchestrator shut down")

	return nil
}

// ReapIdleSessions removes and audits sessions untouched for longer than
// maxAge. Maintenance hook only; the orchestrator never schedules it itself.
func (o *Orchestrator) ReapIdleSessions(ctx context.Context, maxAge time.Duration) int {
	cutoff := time.Now().UTC().Add(-maxAge)
	reaped := 0

	for _, wctx := range o.sessions.List() {
		if wctx.UpdatedAt().After(cutoff) {
			continue
		}
		if _, err := o.sessions.Remove(wctx.SessionID); err == nil {
			o.storeAudit(ctx, wctx)
			reaped++
		}
	}

	if reaped > 0 {
		o.logger.Info("reaped %d idle sessions older than %s", reaped, maxAge)
	}

	return reaped
}

func (o *Orchestrator) agentByName(name string) (core.Agent, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	a, ok := o.agents[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownAgent, name)
	}
	return a, nil
}

// notifyFailure routes the abort through the first agent able to report it.
// Failure reporting is best-effort and panic-contained.
func (o *Orchestrator) notifyFailure(ctx context.Context, wctx *core.WorkflowContext, cause error) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("failure notification panicked session=%s: %v", wctx.SessionID, r)
		}
	}()

	o.mu.RLock()
	var notifier FailureNotifier
	if a, ok := o.agents[agent.NameCommunication]; ok {
		notifier, _ = a.(FailureNotifier)
	}
	if notifier == nil {
		for _, a := range o.agents {
			if n, ok := a.(FailureNotifier); ok {
				notifier = n
				break
			}
		}
	}
	o.mu.RUnlock()

	if notifier != nil {
		notifier.NotifyFailure(ctx, wctx, cause)
	}
}

func (o *Orchestrator) storeAudit(ctx context.Context, wctx *core.WorkflowContext) {
	if o.audit == nil {
		return
	}
	if err := o.audit.Store(ctx, core.WorkflowAuditEntry(wctx)); err != nil {
		o.logger.Error("failed to store workflow audit entry session=%s: %v", wctx.SessionID, err)
	}
}

func (o *Orchestrator) logStep(wctx *core.WorkflowContext, name string, dur time.Duration, err error) {
	if cl, ok := o.logger.(*logging.CareLogger); ok {
		cl.WithSession(wctx.SessionID).LogAgentStep(name, dur, err == nil, err)
		return
	}
	if err != nil {
		o.logger.Error("agent step failed session=%s agent=%s duration=%s: %v", wctx.SessionID, name, dur, err)
		return
	}
	o.logger.Debug("agent step done session=%s agent=%s duration=%s", wctx.SessionID, name, dur)
}

func (o *Orchestrator) logRun(wctx *core.WorkflowContext, steps int, dur time.Duration, err error) {
	if cl, ok := o.logger.(*logging.CareLogger); ok {
		cl.WithSession(wctx.SessionID).LogWorkflowRun(string(wctx.Type), steps, dur, err == nil, err)
		return
	}
	if err != nil {
		o.logger.Error("workflow failed session=%s type=%s duration=%s: %v", wctx.SessionID, wctx.Type, dur, err)
		return
	}
	o.logger.Info("workflow finished session=%s type=%s duration=%s", wctx.SessionID, wctx.Type, dur)
}
