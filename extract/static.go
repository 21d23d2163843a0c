package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/caremesh/caremesh/core"
)

var (
	nameRe  = regexp.MustCompile(`(?i)(?:patient|name)[:\s]+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)+)`)
	dobRe   = regexp.MustCompile(`(?i)(?:dob|date of birth|born)[:\s]+(\d{4}-\d{2}-\d{2}|\d{2}/\d{2}/\d{4})`)
	phoneRe = regexp.MustCompile(`(?:\+?\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
	insRe   = regexp.MustCompile(`(?i)(blue[\s_]?cross|aetna|cigna|united[\s_]?health)`)
	polRe   = regexp.MustCompile(`(?i)(?:policy|insurance)\s*(?:number|no\.?|#)[:\s]*([A-Z0-9-]{5,})`)
)

// StaticExtractor recovers patient identity with regular-expression heuristics
// and no network dependency. It is the fallback when no model-backed
// extractor is configured. Free-text intake is messy, so every field is
// best-effort: nothing recoverable yields (nil, nil).
type StaticExtractor struct{}

// NewStaticExtractor constructs a StaticExtractor.
func NewStaticExtractor() *StaticExtractor {
	return &StaticExtractor{}
}

// ExtractPatientInfo implements core.PatientExtractor.
func (e *StaticExtractor) ExtractPatientInfo(_ context.Context, rawText string) (*core.PatientInfo, error) {
	info := &core.PatientInfo{}
	found := false

	if m := nameRe.FindStringSubmatch(rawText); m != nil {
		info.Name = strings.TrimSpace(m[1])
		found = true
	}
	if m := dobRe.FindStringSubmatch(rawText); m != nil {
		info.DateOfBirth = m[1]
		found = true
	}
	if m := phoneRe.FindString(rawText); m != "" {
		info.ContactNumber = strings.TrimSpace(m)
		found = true
	}
	if m := insRe.FindString(rawText); m != "" {
		provider := strings.ToLower(strings.TrimSpace(m))
		provider = strings.ReplaceAll(provider, " ", "_")
		info.InsuranceProvider = provider
		found = true
	}
	if m := polRe.FindStringSubmatch(rawText); m != nil {
		info.InsuranceNumber = m[1]
		found = true
	}

	lower := strings.ToLower(rawText)
	for _, condition := range []string{"diabetes", "hypertension", "asthma", "heart disease", "copd"} {
		if strings.Contains(lower, condition) {
			info.MedicalHistory = append(info.MedicalHistory, condition)
			found = true
		}
	}
	for _, allergen := range []string{"penicillin", "latex", "peanut", "sulfa"} {
		if strings.Contains(lower, "allergic to "+allergen) || strings.Contains(lower, allergen+" allergy") {
			info.Allergies = append(info.Allergies, allergen)
			found = true
		}
	}

	if !found {
		return nil, nil
	}

	return info, nil
}
