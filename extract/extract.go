package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/caremesh/caremesh/core"
)

// Prompt is the instruction sent to a language model to pull patient identity
// fields out of intake text. The model must answer with a single JSON object
// using the exact field names of core.PatientInfo.
const Prompt = `Extract patient information from the following text and respond with a single JSON object using exactly these keys: name, date_of_birth, gender, contact_number, emergency_contact, address, insurance_provider, insurance_number, medical_history, allergies, current_medications. Use empty strings or empty arrays for anything not present. Do not add commentary.

Text:
`

// DecodePatientInfo parses a model response into a PatientInfo. Markdown code
// fences around the JSON are tolerated.
func DecodePatientInfo(raw string) (*core.PatientInfo, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if start := strings.Index(cleaned, "{"); start > 0 {
		cleaned = cleaned[start:]
	}
	if end := strings.LastIndex(cleaned, "}"); end >= 0 && end < len(cleaned)-1 {
		cleaned = cleaned[:end+1]
	}

	var info core.PatientInfo
	if err := json.Unmarshal([]byte(cleaned), &info); err != nil {
		return nil, fmt.Errorf("failed to decode patient info: %w", err)
	}

	return &info, nil
}
