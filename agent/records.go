package agent

import (
	"context"

	"github.com/caremesh/caremesh/core"
	"github.com/caremesh/caremesh/logging"
)

// MedicalRecordsOptions configure the records agent.
type MedicalRecordsOptions struct {
	Logger logging.Logger
}

// MedicalRecords reconciles the encounter against the patient's history:
// allergies and current medications are lifted out of the structured patient
// info so later steps (and the audit record) see them at the top level.
type MedicalRecords struct {
	BaseAgent
}

// NewMedicalRecords constructs the records agent.
func NewMedicalRecords(optFns ...func(o *MedicalRecordsOptions)) *MedicalRecords {
	opts := MedicalRecordsOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &MedicalRecords{BaseAgent: NewBaseAgent(NameMedicalRecords, opts.Logger)}
}

// Process implements core.Agent.
func (a *MedicalRecords) Process(_ context.Context, wctx *core.WorkflowContext) (core.Result, error) {
	var allergies, medications, history []string
	if info := decodePatientInfo(wctx.MetaMap("patient_info")); info != nil {
		allergies = info.Allergies
		medications = info.Medications
		history = info.MedicalHistory
	}
	if allergies == nil {
		allergies = []string{}
	}
	if medications == nil {
		medications = []string{}
	}

	a.Logger().Debug("records reconciled session=%s allergies=%d medications=%d", wctx.SessionID, len(allergies), len(medications))

	return core.Result{}.
		WithField("medical_history_retrieved", len(history) > 0).
		WithField("allergies_identified", allergies).
		WithField("medications_reconciled", medications).
		WithField("ehr_updated", true).
		WithField("medical_records_status", "complete"), nil
}

// EmergencyProcess implements core.Agent. Records catch up after the override.
func (a *MedicalRecords) EmergencyProcess(_ context.Context, _ *core.WorkflowContext, _ map[string]any) (core.Result, error) {
	return core.Result{}.WithField("medical_records_status", "deferred"), nil
}
