package agent

import (
	"context"
	"strings"

	"github.com/caremesh/caremesh/core"
	"github.com/caremesh/caremesh/logging"
)

// SchedulingOptions configure the scheduling agent.
type SchedulingOptions struct {
	Logger logging.Logger
}

// Scheduling books follow-ups and specialist referrals derived from the
// assessed condition.
type Scheduling struct {
	BaseAgent
}

// NewScheduling constructs the scheduling agent.
func NewScheduling(optFns ...func(o *SchedulingOptions)) *Scheduling {
	opts := SchedulingOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Scheduling{BaseAgent: NewBaseAgent(NameScheduling, opts.Logger)}
}

// Process implements core.Agent.
func (a *Scheduling) Process(_ context.Context, wctx *core.WorkflowContext) (core.Result, error) {
	condition := strings.ToLower(wctx.Board().MedicalCondition)

	var referrals []string
	followUp := "follow_up_14_days"
	switch {
	case strings.Contains(condition, "cardiac"):
		referrals = append(referrals, "cardiology")
		followUp = "follow_up_7_days"
	case strings.Contains(condition, "trauma"):
		referrals = append(referrals, "orthopedics", "surgery")
		followUp = "follow_up_7_days"
	case strings.Contains(condition, "respiratory"):
		referrals = append(referrals, "pulmonology")
	case strings.Contains(condition, "neurological"):
		referrals = append(referrals, "neurology")
		followUp = "follow_up_7_days"
	}
	if referrals == nil {
		referrals = []string{}
	}

	a.Logger().Debug("scheduling session=%s referrals=%v", wctx.SessionID, referrals)

	return core.Result{}.
		WithField("appointments_scheduled", []string{}).
		WithField("follow_ups_created", []string{followUp}).
		WithField("specialist_referrals", referrals).
		WithField("scheduling_status", "completed"), nil
}

// EmergencyProcess implements core.Agent. Scheduling waits for stabilization.
func (a *Scheduling) EmergencyProcess(_ context.Context, _ *core.WorkflowContext, _ map[string]any) (core.Result, error) {
	return core.Result{}.WithField("scheduling_status", "deferred"), nil
}
