package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caremesh/caremesh/core"
)

func TestTriage_CriticalVitalsOverrideKeywords(t *testing.T) {
	a := NewTriage()
	wctx := core.NewWorkflowContext("s1", core.WorkflowEmergency, map[string]any{
		"text_input":  "routine checkup",
		"vital_signs": map[string]any{"heart_rate": 42.0},
	})

	res, err := a.Process(context.Background(), wctx)
	require.NoError(t, err)

	assert.Equal(t, core.LevelCritical, res.EmergencyLevel)
	assert.Equal(t, 1, res.PriorityScore)
	assert.Contains(t, res.MedicalCondition, "abnormal_heart_rate")
}

func TestTriage_VitalBounds(t *testing.T) {
	tests := []struct {
		name    string
		vitals  map[string]any
		finding string
	}{
		{"low systolic", map[string]any{"systolic": 85.0}, "hypotension"},
		{"high diastolic", map[string]any{"diastolic": 125.0}, "hypertension"},
		{"tachycardia", map[string]any{"heart_rate": 130.0}, "abnormal_heart_rate"},
		{"low oxygen", map[string]any{"oxygen_saturation": 88.0}, "hypoxemia"},
		{"hypothermia", map[string]any{"temperature": 34.5}, "abnormal_temperature"},
		{"fever", map[string]any{"temperature": 39.5}, "abnormal_temperature"},
	}

	a := NewTriage()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wctx := core.NewWorkflowContext("s", core.WorkflowRegular, map[string]any{"vital_signs": tt.vitals})
			res, err := a.Process(context.Background(), wctx)
			require.NoError(t, err)
			assert.Equal(t, core.LevelCritical, res.EmergencyLevel)
			assert.Contains(t, res.MedicalCondition, tt.finding)
		})
	}
}

func TestTriage_NormalVitalsAreNotCritical(t *testing.T) {
	a := NewTriage()
	wctx := core.NewWorkflowContext("s1", core.WorkflowRegular, map[string]any{
		"vital_signs": map[string]any{"heart_rate": 72.0, "temperature": 36.8, "oxygen_saturation": 98.0},
	})

	res, err := a.Process(context.Background(), wctx)
	require.NoError(t, err)
	assert.Equal(t, core.LevelUrgent, res.EmergencyLevel)
	assert.Equal(t, "unknown", res.MedicalCondition)
}

func TestTriage_TraumaKeywordsAreCritical(t *testing.T) {
	a := NewTriage()
	wctx := core.NewWorkflowContext("s1", core.WorkflowEmergency, map[string]any{
		"voice_input": "patient was in a car accident and is unconscious",
	})

	res, err := a.Process(context.Background(), wctx)
	require.NoError(t, err)

	assert.Equal(t, core.LevelCritical, res.EmergencyLevel)
	assert.Equal(t, "trauma", res.MedicalCondition)
	assert.Contains(t, res.Fields["required_resources"], "trauma_team")
}

func TestTriage_CardiacKeywordsAreCritical(t *testing.T) {
	a := NewTriage()
	wctx := core.NewWorkflowContext("s1", core.WorkflowEmergency, map[string]any{
		"text_input": "severe chest pain radiating to the left arm",
	})

	res, err := a.Process(context.Background(), wctx)
	require.NoError(t, err)
	assert.Equal(t, core.LevelCritical, res.EmergencyLevel)
	assert.Equal(t, "cardiac", res.MedicalCondition)
}

func TestTriage_RespiratoryKeywordsAreUrgent(t *testing.T) {
	a := NewTriage()
	wctx := core.NewWorkflowContext("s1", core.WorkflowRegular, map[string]any{
		"text_input": "shortness of breath since this morning",
	})

	res, err := a.Process(context.Background(), wctx)
	require.NoError(t, err)
	assert.Equal(t, core.LevelUrgent, res.EmergencyLevel)
	assert.Equal(t, "respiratory", res.MedicalCondition)
	assert.Equal(t, 2, res.PriorityScore)
}

func TestTriage_NoInputDefaultsToCritical(t *testing.T) {
	a := NewTriage()
	wctx := core.NewWorkflowContext("s1", core.WorkflowEmergency, nil)

	res, err := a.Process(context.Background(), wctx)
	require.NoError(t, err)

	assert.Equal(t, core.LevelCritical, res.EmergencyLevel)
	assert.Equal(t, 1, res.PriorityScore)
	assert.Equal(t, 0.0, res.Fields["triage_confidence"])
}

func TestTriage_EmergencyProcessIsImmediatelyCritical(t *testing.T) {
	a := NewTriage()
	wctx := core.NewWorkflowContext("s1", core.WorkflowEmergency, nil)

	res, err := a.EmergencyProcess(context.Background(), wctx, map[string]any{"reason": "mass casualty"})
	require.NoError(t, err)

	assert.Equal(t, core.LevelCritical, res.EmergencyLevel)
	assert.Equal(t, "emergency_override", res.MedicalCondition)
	assert.Equal(t, 1.0, res.Fields["triage_confidence"])
}
