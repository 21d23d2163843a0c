package core

import "context"

// PatientInfo is the structured identity a PatientExtractor recovers from
// free-text intake input. All fields are best-effort; absent data stays zero.
type PatientInfo struct {
	Name              string   `json:"name"`
	DateOfBirth       string   `json:"date_of_birth"`
	Gender            string   `json:"gender"`
	ContactNumber     string   `json:"contact_number"`
	EmergencyContact  string   `json:"emergency_contact"`
	Address           string   `json:"address"`
	InsuranceProvider string   `json:"insurance_provider"`
	InsuranceNumber   string   `json:"insurance_number"`
	MedicalHistory    []string `json:"medical_history,omitempty"`
	Allergies         []string `json:"allergies,omitempty"`
	Medications       []string `json:"current_medications,omitempty"`
}

// PatientExtractor turns free-text intake input into structured patient data.
// A nil result with a nil error means "no structured identity recoverable";
// consumers proceed without it rather than aborting.
type PatientExtractor interface {
	ExtractPatientInfo(ctx context.Context, rawText string) (*PatientInfo, error)
}

// InsuranceVerifier checks coverage with an insurance provider. Best-effort: a
// false or error result downgrades admission confidence but never blocks bed
// allocation.
type InsuranceVerifier interface {
	Verify(ctx context.Context, provider, number string) (bool, error)
}

// CaseRegistrar registers a police/legal case for a patient encounter.
type CaseRegistrar interface {
	RegisterCase(ctx context.Context, patientID, caseNumber string, details map[string]any) (bool, error)
}
