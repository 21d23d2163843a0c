package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caremesh/caremesh/core"
)

func TestInMemoryStore_PutGetRemove(t *testing.T) {
	store := NewInMemoryStore()
	wctx := core.NewWorkflowContext("s1", core.WorkflowEmergency, nil)

	require.NoError(t, store.Put(wctx))

	got, err := store.Get("s1")
	require.NoError(t, err)
	assert.Same(t, wctx, got)

	removed, err := store.Remove("s1")
	require.NoError(t, err)
	assert.Same(t, wctx, removed)

	_, err = store.Get("s1")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestInMemoryStore_RemoveMissing(t *testing.T) {
	store := NewInMemoryStore()
	_, err := store.Remove("nope")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestInMemoryStore_List(t *testing.T) {
	store := NewInMemoryStore()
	require.NoError(t, store.Put(core.NewWorkflowContext("a", core.WorkflowRegular, nil)))
	require.NoError(t, store.Put(core.NewWorkflowContext("b", core.WorkflowEmergency, nil)))

	assert.Len(t, store.List(), 2)
}
