package agent

import (
	"context"

	"github.com/caremesh/caremesh/core"
	"github.com/caremesh/caremesh/logging"
)

// wardDailyRate is the base daily charge per ward.
var wardDailyRate = map[string]float64{
	"icu":       5000.00,
	"emergency": 3500.00,
	"general":   2000.00,
	"pediatric": 2200.00,
	"maternity": 2500.00,
}

// emergencyMultiplier scales the estimate by acuity.
var emergencyMultiplier = map[core.EmergencyLevel]float64{
	core.LevelCritical:  1.5,
	core.LevelUrgent:    1.2,
	core.LevelNonUrgent: 1.0,
}

// insuranceCoverageShare is the contracted payer share applied when coverage
// verified during admission.
const insuranceCoverageShare = 0.8

// BillingOptions configure the billing agent.
type BillingOptions struct {
	Logger logging.Logger
}

// Billing estimates encounter cost from the assigned ward and acuity, then
// splits it between insurance and patient responsibility.
type Billing struct {
	BaseAgent
}

// NewBilling constructs the billing agent.
func NewBilling(optFns ...func(o *BillingOptions)) *Billing {
	opts := BillingOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Billing{BaseAgent: NewBaseAgent(NameBilling, opts.Logger)}
}

// Process implements core.Agent.
func (a *Billing) Process(_ context.Context, wctx *core.WorkflowContext) (core.Result, error) {
	board := wctx.Board()

	rate, ok := wardDailyRate[board.Ward]
	if !ok {
		rate = wardDailyRate["general"]
	}
	multiplier, ok := emergencyMultiplier[board.EmergencyLevel]
	if !ok {
		multiplier = 1.0
	}

	estimate := rate * multiplier

	coverage := 0.0
	if wctx.MetaBool("insurance_verified") {
		coverage = estimate * insuranceCoverageShare
	}

	a.Logger().Debug("billing estimate session=%s ward=%s estimate=%.2f coverage=%.2f", wctx.SessionID, board.Ward, estimate, coverage)

	return core.Result{}.
		WithField("billing_estimate", estimate).
		WithField("insurance_coverage", coverage).
		WithField("patient_responsibility", estimate-coverage).
		WithField("billing_status", "estimated"), nil
}

// EmergencyProcess implements core.Agent. Billing is deferred in overrides.
func (a *Billing) EmergencyProcess(_ context.Context, _ *core.WorkflowContext, _ map[string]any) (core.Result, error) {
	return core.Result{}.WithField("billing_status", "deferred"), nil
}
