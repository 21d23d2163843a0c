package agent

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caremesh/caremesh/core"
)

type stubVerifier struct{ ok bool }

func (s stubVerifier) Verify(context.Context, string, string) (bool, error) { return s.ok, nil }

type recordingRegistrar struct {
	mu    sync.Mutex
	cases []string
}

func (r *recordingRegistrar) RegisterCase(_ context.Context, patientID, caseNumber string, _ map[string]any) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cases = append(r.cases, patientID+"/"+caseNumber)
	return true, nil
}

func patientInfoMeta() map[string]any {
	return map[string]any{
		"patient_info": map[string]any{
			"name":               "John Smith",
			"date_of_birth":      "1985-03-12",
			"contact_number":     "+15551234567",
			"insurance_provider": "aetna",
			"insurance_number":   "POL-1",
		},
	}
}

func TestAdmission_EmergencyAssignsSyntheticID(t *testing.T) {
	a := NewAdmission()
	wctx := core.NewWorkflowContext("s1", core.WorkflowEmergency, nil)

	res, err := a.Process(context.Background(), wctx)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.PatientID, "EMERGENCY_"))
	assert.Len(t, res.PatientID, len("EMERGENCY_")+8)
	assert.Equal(t, "admitted", res.Fields["admission_status"])
	assert.NotEmpty(t, res.Ward)
	assert.NotEmpty(t, res.Bed)
}

func TestAdmission_CriticalPrefersICU(t *testing.T) {
	a := NewAdmission()
	wctx := core.NewWorkflowContext("s1", core.WorkflowEmergency, nil)
	wctx.ApplyResult(core.Result{EmergencyLevel: core.LevelCritical})

	res, err := a.Process(context.Background(), wctx)
	require.NoError(t, err)

	assert.Equal(t, "icu", res.Ward)
	assert.True(t, strings.HasPrefix(res.Bed, "ICU-"))
}

func TestAdmission_FallbackChainWhenICUFull(t *testing.T) {
	a := NewAdmission(func(o *AdmissionOptions) {
		o.WardCapacity = map[string][2]int{
			"icu":       {10, 0},
			"emergency": {20, 1},
		}
	})
	wctx := core.NewWorkflowContext("s1", core.WorkflowEmergency, nil)
	wctx.ApplyResult(core.Result{EmergencyLevel: core.LevelCritical})

	res, err := a.Process(context.Background(), wctx)
	require.NoError(t, err)
	assert.Equal(t, "emergency", res.Ward)
}

func TestAdmission_OverflowWhenAllWardsFull(t *testing.T) {
	a := NewAdmission(func(o *AdmissionOptions) {
		o.WardCapacity = map[string][2]int{
			"icu":       {10, 0},
			"emergency": {20, 0},
			"general":   {50, 0},
		}
	})
	wctx := core.NewWorkflowContext("s1", core.WorkflowEmergency, nil)

	res, err := a.Process(context.Background(), wctx)
	require.NoError(t, err)

	assert.Equal(t, "emergency", res.Ward)
	assert.True(t, strings.HasPrefix(res.Bed, "ER-OVERFLOW-"))
	assert.Equal(t, 0, a.Available("emergency"), "overflow must not drive capacity negative")
}

func TestAdmission_ConcurrentAllocationsNeverGoNegative(t *testing.T) {
	a := NewAdmission(func(o *AdmissionOptions) {
		o.WardCapacity = map[string][2]int{
			"icu":       {10, 0},
			"emergency": {20, 5},
			"general":   {50, 5},
		}
	})

	beds := make(chan string, 40)
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wctx := core.NewWorkflowContext(core.NewID(), core.WorkflowEmergency, nil)
			res, err := a.Process(context.Background(), wctx)
			assert.NoError(t, err)
			beds <- res.Ward + "/" + res.Bed
		}()
	}
	wg.Wait()
	close(beds)

	seen := map[string]bool{}
	overflow := 0
	for bed := range beds {
		if strings.Contains(bed, "OVERFLOW") {
			overflow++
			continue
		}
		assert.False(t, seen[bed], "bed %s assigned twice", bed)
		seen[bed] = true
	}

	assert.Equal(t, 30, overflow, "10 real beds for 40 patients leaves 30 overflow assignments")
	assert.Equal(t, 0, a.Available("emergency"))
	assert.Equal(t, 0, a.Available("general"))
}

func TestAdmission_RegularGeneratesIDFromNameAndDOB(t *testing.T) {
	a := NewAdmission(func(o *AdmissionOptions) { o.Verifier = stubVerifier{ok: true} })
	wctx := core.NewWorkflowContext("s1", core.WorkflowRegular, patientInfoMeta())

	res, err := a.Process(context.Background(), wctx)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.PatientID, "JOHN0312"), "got %s", res.PatientID)
	assert.Equal(t, "admitted", res.Fields["admission_status"])
	assert.Equal(t, true, res.Fields["insurance_verified"])
	assert.Equal(t, 0.95, res.Fields["admission_confidence"])
}

func TestAdmission_RegularWithoutPatientInfoFallsBackToEmergency(t *testing.T) {
	a := NewAdmission()
	wctx := core.NewWorkflowContext("s1", core.WorkflowRegular, nil)

	res, err := a.Process(context.Background(), wctx)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.PatientID, "EMERGENCY_"))
	assert.Equal(t, "emergency", res.Fields["admission_type"])
	assert.Equal(t, 0.0, res.Fields["admission_confidence"])
}

func TestAdmission_UnverifiableIdentityIsPending(t *testing.T) {
	a := NewAdmission()
	meta := patientInfoMeta()
	meta["patient_info"].(map[string]any)["contact_number"] = "not-a-phone"
	wctx := core.NewWorkflowContext("s1", core.WorkflowRegular, meta)

	res, err := a.Process(context.Background(), wctx)
	require.NoError(t, err)
	assert.Equal(t, "pending", res.Fields["admission_status"])
	assert.Equal(t, 0.70, res.Fields["admission_confidence"])
}

func TestAdmission_RegularWardRouting(t *testing.T) {
	a := NewAdmission()

	wctx := core.NewWorkflowContext("s1", core.WorkflowRegular, patientInfoMeta())
	wctx.ApplyResult(core.Result{MedicalCondition: "pediatric fever"})
	res, err := a.Process(context.Background(), wctx)
	require.NoError(t, err)
	assert.Equal(t, "pediatric", res.Ward)

	wctx = core.NewWorkflowContext("s2", core.WorkflowRegular, patientInfoMeta())
	wctx.ApplyResult(core.Result{MedicalCondition: "pregnancy complications"})
	res, err = a.Process(context.Background(), wctx)
	require.NoError(t, err)
	assert.Equal(t, "maternity", res.Ward)
}

func TestAdmission_EmergencyLegalCaseRegistration(t *testing.T) {
	registrar := &recordingRegistrar{}
	a := NewAdmission(func(o *AdmissionOptions) { o.Registrar = registrar })

	wctx := core.NewWorkflowContext("s1", core.WorkflowEmergency, map[string]any{
		"legal_case":         true,
		"police_case_number": "PC-1001",
	})

	res, err := a.Process(context.Background(), wctx)
	require.NoError(t, err)

	assert.Equal(t, true, res.Fields["legal_case_registered"])
	require.Len(t, registrar.cases, 1)
	assert.Contains(t, registrar.cases[0], "PC-1001")
}

func TestAdmission_ReleaseBedIsCappedAtTotal(t *testing.T) {
	a := NewAdmission(func(o *AdmissionOptions) {
		o.WardCapacity = map[string][2]int{"icu": {10, 10}}
	})

	a.ReleaseBed("icu")
	assert.Equal(t, 10, a.Available("icu"))
}

func TestEstimateStay(t *testing.T) {
	assert.Equal(t, "3-7 days", estimateStay("major trauma"))
	assert.Equal(t, "5-10 days", estimateStay("pneumonia"))
	assert.Equal(t, "1-2 days", estimateStay("routine checkup"))
	assert.Equal(t, "2-5 days", estimateStay("unknown"))
}
