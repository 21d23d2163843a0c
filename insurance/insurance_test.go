package insurance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticVerifier_ContractedProviders(t *testing.T) {
	v := NewStaticVerifier()

	for _, provider := range []string{"blue_cross", "aetna", "cigna", "united_health"} {
		ok, err := v.Verify(context.Background(), provider, "POL-123")
		require.NoError(t, err)
		assert.True(t, ok, provider)
	}
}

func TestStaticVerifier_NormalizesProviderName(t *testing.T) {
	v := NewStaticVerifier()

	ok, err := v.Verify(context.Background(), "Blue Cross", "POL-123")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStaticVerifier_UnknownProviderFailsWithoutError(t *testing.T) {
	v := NewStaticVerifier()

	ok, err := v.Verify(context.Background(), "acme_health", "POL-123")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStaticVerifier_EmptyPolicyNumberFails(t *testing.T) {
	v := NewStaticVerifier()

	ok, err := v.Verify(context.Background(), "aetna", "  ")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStaticVerifier_AddProvider(t *testing.T) {
	v := NewStaticVerifier()
	v.AddProvider("Acme Health")

	ok, err := v.Verify(context.Background(), "acme_health", "POL-9")
	require.NoError(t, err)
	assert.True(t, ok)
}
