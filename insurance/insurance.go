// Package insurance provides coverage verification for patient admissions.
// Verification is always best-effort: admission proceeds whether or not the
// provider confirms coverage.
package insurance

import (
	"context"
	"strings"
	"sync"
)

// StaticVerifier validates coverage against an in-memory provider table.
// Stands in for a payer clearinghouse integration; implements
// core.InsuranceVerifier.
type StaticVerifier struct {
	mu        sync.RWMutex
	providers map[string]bool
}

// NewStaticVerifier seeds the verifier with the providers the hospital has
// active contracts with.
func NewStaticVerifier() *StaticVerifier {
	return &StaticVerifier{
		providers: map[string]bool{
			"blue_cross":    true,
			"aetna":         true,
			"cigna":         true,
			"united_health": true,
		},
	}
}

// Verify reports whether the provider is contracted and the policy number is
// plausibly formed. Unknown providers verify as false, never as an error.
func (v *StaticVerifier) Verify(_ context.Context, provider, number string) (bool, error) {
	key := strings.ToLower(strings.TrimSpace(provider))
	key = strings.ReplaceAll(key, " ", "_")

	v.mu.RLock()
	contracted := v.providers[key]
	v.mu.RUnlock()

	return contracted && strings.TrimSpace(number) != "", nil
}

// AddProvider registers an additional contracted provider.
func (v *StaticVerifier) AddProvider(provider string) {
	key := strings.ToLower(strings.TrimSpace(provider))
	key = strings.ReplaceAll(key, " ", "_")

	v.mu.Lock()
	v.providers[key] = true
	v.mu.Unlock()
}
