package caremesh

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caremesh/caremesh/audit"
	"github.com/caremesh/caremesh/core"
	"github.com/caremesh/caremesh/device"
	"github.com/caremesh/caremesh/notify"
)

func waitForSettled(t *testing.T, m *CareMesh, sessionID string, check func(core.Status) bool) core.Status {
	t.Helper()
	var status core.Status
	require.Eventually(t, func() bool {
		s, err := m.WorkflowStatus(sessionID)
		if err != nil {
			return false
		}
		status = s
		return check(s)
	}, 2*time.Second, 5*time.Millisecond)
	return status
}

func TestCareMesh_EmergencyWorkflowEndToEnd(t *testing.T) {
	sink := audit.NewInMemorySink()
	m := New(func(o *Options) { o.AuditSink = sink })

	id, err := m.StartWorkflow(context.Background(), core.WorkflowEmergency, map[string]any{
		"text_input": "patient was in a car accident, severe head injury",
		"legal_case": true,
	})
	require.NoError(t, err)

	status := waitForSettled(t, m, id, func(s core.Status) bool {
		return s.PatientID != "" && s.LegalCase != nil
	})

	assert.Equal(t, core.LevelCritical, status.EmergencyLevel)
	assert.True(t, strings.HasPrefix(status.PatientID, "EMERGENCY_"))
	require.NotNil(t, status.LegalCase)
	assert.True(t, *status.LegalCase)
	assert.Equal(t, "active", status.State)

	require.NoError(t, m.CompleteWorkflow(context.Background(), id))
	entries := sink.ByKind(core.AuditKindWorkflow)
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].RefID)
}

func TestCareMesh_DeviceEmergencyAuditsAlert(t *testing.T) {
	sink := audit.NewInMemorySink()
	m := New(func(o *Options) { o.AuditSink = sink })

	require.NoError(t, m.RegisterDevice(device.Device{
		DeviceID:   "watch-1",
		PatientID:  "p-1",
		Contacts:   []notify.Contact{{Name: "Spouse", Phone: "+15550100", NotifySMS: true}},
		Thresholds: map[string]any{"heart_rate_min": 50.0, "heart_rate_max": 120.0},
	}))

	eval, err := m.UpdateVitals(context.Background(), "watch-1", map[string]any{"heart_rate": 44.0})
	require.NoError(t, err)

	assert.True(t, eval.IsEmergency)
	assert.Len(t, m.Devices().Alerts(), 1)
	assert.Len(t, sink.ByKind(core.AuditKindAlert), 1)
}

func TestCareMesh_EmergencyOverrideEscalatesRegularSession(t *testing.T) {
	m := New()

	id, err := m.StartWorkflow(context.Background(), core.WorkflowRegular, map[string]any{
		"patient_info": map[string]any{
			"name":           "John Smith",
			"date_of_birth":  "1985-03-12",
			"contact_number": "+15551234567",
		},
	})
	require.NoError(t, err)

	waitForSettled(t, m, id, func(s core.Status) bool { return s.PatientID != "" })

	require.NoError(t, m.EmergencyOverride(context.Background(), id, map[string]any{"reason": "sudden deterioration"}))

	status, err := m.WorkflowStatus(id)
	require.NoError(t, err)
	assert.Equal(t, core.LevelCritical, status.EmergencyLevel)
}

func TestCareMesh_AgentHealthCoversDefaultSet(t *testing.T) {
	m := New()

	health := m.AgentHealth(context.Background())

	assert.Len(t, health, 8)
	for name, ok := range health {
		assert.True(t, ok, name)
	}
}

func TestCareMesh_ShutdownIsClean(t *testing.T) {
	m := New()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))

	_, err := m.StartWorkflow(context.Background(), core.WorkflowRegular, nil)
	assert.Error(t, err)
}
