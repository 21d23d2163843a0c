package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkflowContext_CopiesInitialData(t *testing.T) {
	initial := map[string]any{"text_input": "chest pain"}
	wctx := NewWorkflowContext("s1", WorkflowEmergency, initial)

	// Mutating the caller's map must not leak into the context.
	initial["text_input"] = "changed"

	assert.Equal(t, "chest pain", wctx.MetaString("text_input"))
	assert.Equal(t, BlackboardVersion, wctx.Board().Version)
}

func TestWorkflowContext_MetadataIsolation(t *testing.T) {
	c1 := NewWorkflowContext("1", WorkflowEmergency, nil)
	c2 := NewWorkflowContext("2", WorkflowRegular, nil)

	c1.SetMeta("key", "value")

	_, ok := c2.Meta("key")
	assert.False(t, ok)
	assert.Empty(t, c2.MetadataSnapshot())
}

func TestWorkflowContext_MetadataIsolation_Concurrent(t *testing.T) {
	const n = 50
	contexts := make([]*WorkflowContext, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := NewWorkflowContext(NewID(), WorkflowRegular, nil)
			c.SetMeta("owner", i)
			contexts[i] = c
		}(i)
	}
	wg.Wait()

	for i, c := range contexts {
		require.NotNil(t, c)
		v, ok := c.Meta("owner")
		require.True(t, ok)
		assert.Equal(t, i, v)
		assert.Len(t, c.MetadataSnapshot(), 1)
	}
}

func TestWorkflowContext_ApplyResult_PromotesTypedFields(t *testing.T) {
	wctx := NewWorkflowContext("s1", WorkflowEmergency, nil)

	before := wctx.UpdatedAt()
	wctx.ApplyResult(Result{
		EmergencyLevel:   LevelCritical,
		MedicalCondition: "cardiac",
		PriorityScore:    1,
		PatientID:        "P-123",
		LegalCase:        BoolPtr(true),
		Fields:           map[string]any{"triage_reasoning": "chest pain reported"},
	})

	board := wctx.Board()
	assert.Equal(t, LevelCritical, board.EmergencyLevel)
	assert.Equal(t, "cardiac", board.MedicalCondition)
	assert.Equal(t, 1, board.PriorityScore)
	assert.Equal(t, "P-123", board.PatientID)
	require.NotNil(t, board.LegalCase)
	assert.True(t, *board.LegalCase)
	assert.Equal(t, "chest pain reported", wctx.MetaString("triage_reasoning"))
	assert.False(t, wctx.UpdatedAt().Before(before))
}

func TestWorkflowContext_ApplyResult_LastWriteWins(t *testing.T) {
	wctx := NewWorkflowContext("s1", WorkflowRegular, nil)

	wctx.ApplyResult(Result{Fields: map[string]any{"note": "first"}})
	wctx.ApplyResult(Result{Fields: map[string]any{"note": "second"}})

	assert.Equal(t, "second", wctx.MetaString("note"))
}

func TestWorkflowContext_ApplyResult_ZeroFieldsLeaveBoardUntouched(t *testing.T) {
	wctx := NewWorkflowContext("s1", WorkflowEmergency, nil)
	wctx.ApplyResult(Result{EmergencyLevel: LevelUrgent, PatientID: "P-1"})

	// A later agent that produces no promotable output must not erase
	// earlier promotions.
	wctx.ApplyResult(Result{Fields: map[string]any{"billing_status": "estimated"}})

	board := wctx.Board()
	assert.Equal(t, LevelUrgent, board.EmergencyLevel)
	assert.Equal(t, "P-1", board.PatientID)
}

func TestWorkflowContext_MarkFailed(t *testing.T) {
	wctx := NewWorkflowContext("s1", WorkflowEmergency, nil)
	wctx.MarkFailed(assert.AnError)

	assert.True(t, wctx.Failed())
	assert.Equal(t, assert.AnError.Error(), wctx.MetaString("error"))
	_, ok := wctx.Meta("error_timestamp")
	assert.True(t, ok)

	snap := wctx.Snapshot()
	assert.Equal(t, "failed", snap.State)
	assert.Equal(t, assert.AnError.Error(), snap.Error)
}

func TestWorkflowContext_Snapshot_DoesNotExposeMetadata(t *testing.T) {
	wctx := NewWorkflowContext("s1", WorkflowRegular, map[string]any{"secret": "x"})
	snap := wctx.Snapshot()

	assert.Equal(t, "s1", snap.SessionID)
	assert.Equal(t, WorkflowRegular, snap.WorkflowType)
	assert.Equal(t, "active", snap.State)
}
