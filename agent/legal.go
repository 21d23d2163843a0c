package agent

import (
	"context"

	"github.com/caremesh/caremesh/core"
	"github.com/caremesh/caremesh/logging"
)

// LegalOptions configure the legal agent.
type LegalOptions struct {
	Logger logging.Logger

	// Registrar files the police case. Optional; without it, legal cases are
	// flagged but not registered.
	Registrar core.CaseRegistrar
}

// Legal evaluates the encounter's legal implications. It always asserts the
// legal-case flag (true or false) on the blackboard so downstream consumers
// can distinguish "no case" from "not evaluated".
type Legal struct {
	BaseAgent

	registrar core.CaseRegistrar
}

// NewLegal constructs the legal agent.
func NewLegal(optFns ...func(o *LegalOptions)) *Legal {
	opts := LegalOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Legal{BaseAgent: NewBaseAgent(NameLegal, opts.Logger), registrar: opts.Registrar}
}

// Process implements core.Agent.
func (a *Legal) Process(ctx context.Context, wctx *core.WorkflowContext) (core.Result, error) {
	if !wctx.MetaBool("legal_case") {
		return core.Result{LegalCase: core.BoolPtr(false)}.
			WithField("police_notified", false).
			WithField("evidence_preserved", true).
			WithField("legal_status", "no_legal_implications"), nil
	}

	registered := false
	if a.registrar != nil {
		ok, err := a.registrar.RegisterCase(ctx, wctx.Board().PatientID, wctx.MetaString("police_case_number"), wctx.MetaMap("accident_details"))
		if err != nil {
			a.Logger().Error("police case registration failed session=%s: %v", wctx.SessionID, err)
		}
		registered = ok
	}

	status := "case_flagged"
	if registered {
		status = "case_registered"
	}

	a.Logger().Info("legal case session=%s registered=%t", wctx.SessionID, registered)

	return core.Result{LegalCase: core.BoolPtr(true)}.
		WithField("police_notified", registered).
		WithField("evidence_preserved", true).
		WithField("legal_status", status), nil
}

// EmergencyProcess implements core.Agent. Overrides defer legal processing.
func (a *Legal) EmergencyProcess(_ context.Context, _ *core.WorkflowContext, _ map[string]any) (core.Result, error) {
	return core.Result{}.WithField("legal_status", "deferred"), nil
}
