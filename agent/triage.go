package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/caremesh/caremesh/core"
	"github.com/caremesh/caremesh/logging"
)

// conditionKeywords maps condition categories to the intake phrases that
// suggest them. Matched categories classify as urgent unless a critical rule
// fires first.
var conditionKeywords = map[string][]string{
	"trauma":       {"head injury", "gunshot", "stab", "car accident", "unconscious"},
	"cardiac":      {"chest pain", "heart attack", "cardiac", "arrhythmia"},
	"respiratory":  {"shortness of breath", "asthma attack", "pneumonia"},
	"neurological": {"stroke", "seizure", "unconsciousness"},
	"obstetric":    {"labor", "pregnancy complications"},
	"pediatric":    {"child injury", "fever", "dehydration"},
}

// criticalCategories classify as critical regardless of other signals.
var criticalCategories = map[string]bool{"trauma": true, "cardiac": true}

// TriageOptions configure the triage agent.
type TriageOptions struct {
	Logger logging.Logger
}

// Triage assesses patient urgency from intake text and vital signs. The
// assessment is rule-based: critical vital-sign bounds override everything,
// then condition keywords classify, then a conservative default applies.
//
// Triage never returns an error from Process. Any internal fault degrades to
// a critical, priority-1 classification because a missing assessment must not
// read as "no concern".
type Triage struct {
	BaseAgent
}

// NewTriage constructs the triage agent.
func NewTriage(optFns ...func(o *TriageOptions)) *Triage {
	opts := TriageOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Triage{BaseAgent: NewBaseAgent(NameTriage, opts.Logger)}
}

// Process implements core.Agent.
func (a *Triage) Process(_ context.Context, wctx *core.WorkflowContext) (result core.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			a.Logger().Error("triage assessment fault session=%s: %v", wctx.SessionID, r)
			result = a.failSafeResult(fmt.Sprintf("assessment fault: %v", r))
			err = nil
		}
	}()

	vitals := wctx.MetaMap("vital_signs")
	input := wctx.MetaString("voice_input")
	if input == "" {
		input = wctx.MetaString("text_input")
	}

	if findings := criticalVitalFindings(vitals); len(findings) > 0 {
		joined := strings.Join(findings, ", ")
		return core.Result{
			EmergencyLevel:   core.LevelCritical,
			MedicalCondition: "critical vital signs: " + joined,
			PriorityScore:    1,
		}.WithField("required_resources", []string{"emergency_room", "monitoring", "doctor"}).
			WithField("immediate_actions", []string{"immediate_medical_attention", "vital_signs_monitoring"}).
			WithField("triage_confidence", 0.9).
			WithField("triage_reasoning", "critical vital signs detected: "+joined), nil
	}

	if category := classifyCondition(input); category != "" {
		if criticalCategories[category] {
			return core.Result{
				EmergencyLevel:   core.LevelCritical,
				MedicalCondition: category,
				PriorityScore:    1,
			}.WithField("required_resources", resourcesFor(category)).
				WithField("immediate_actions", []string{"immediate_medical_attention"}).
				WithField("triage_confidence", 0.8).
				WithField("triage_reasoning", category+" indicators detected in patient description"), nil
		}
		return core.Result{
			EmergencyLevel:   core.LevelUrgent,
			MedicalCondition: category,
			PriorityScore:    2,
		}.WithField("required_resources", resourcesFor(category)).
			WithField("immediate_actions", []string{"medical_evaluation"}).
			WithField("triage_confidence", 0.6).
			WithField("triage_reasoning", category+" indicators detected"), nil
	}

	if input == "" && len(vitals) == 0 {
		// No signal at all still gets the conservative treatment.
		return a.failSafeResult("no intake data available"), nil
	}

	return core.Result{
		EmergencyLevel:   core.LevelUrgent,
		MedicalCondition: "unknown",
		PriorityScore:    3,
	}.WithField("required_resources", []string{"medical_attention"}).
		WithField("immediate_actions", []string{"assess_patient"}).
		WithField("triage_confidence", 0.5).
		WithField("triage_reasoning", "no specific indicators matched"), nil
}

// EmergencyProcess implements core.Agent. Overrides classify as critical
// immediately.
func (a *Triage) EmergencyProcess(_ context.Context, _ *core.WorkflowContext, _ map[string]any) (core.Result, error) {
	return core.Result{
		EmergencyLevel:   core.LevelCritical,
		MedicalCondition: "emergency_override",
		PriorityScore:    1,
	}.WithField("required_resources", []string{"emergency_room", "doctor"}).
		WithField("immediate_actions", []string{"immediate_medical_attention"}).
		WithField("triage_confidence", 1.0).
		WithField("triage_reasoning", "emergency override activated"), nil
}

func (a *Triage) failSafeResult(reason string) core.Result {
	return core.Result{
		EmergencyLevel:   core.LevelCritical,
		MedicalCondition: "unknown",
		PriorityScore:    1,
	}.WithField("required_resources", []string{"emergency_room", "doctor"}).
		WithField("immediate_actions", []string{"immediate_medical_attention"}).
		WithField("triage_confidence", 0.0).
		WithField("triage_reasoning", reason)
}

// criticalVitalFindings returns the names of every vital sign outside its
// hard safety bound. Absent metrics are never findings.
func criticalVitalFindings(vitals map[string]any) []string {
	var findings []string

	if v, ok := vitalNumber(vitals, "systolic"); ok && v < 90 {
		findings = append(findings, "hypotension")
	}
	if v, ok := vitalNumber(vitals, "diastolic"); ok && v > 120 {
		findings = append(findings, "hypertension")
	}
	if v, ok := vitalNumber(vitals, "heart_rate"); ok && (v < 50 || v > 120) {
		findings = append(findings, "abnormal_heart_rate")
	}
	if v, ok := vitalNumber(vitals, "oxygen_saturation"); ok && v < 90 {
		findings = append(findings, "hypoxemia")
	}
	if v, ok := vitalNumber(vitals, "temperature"); ok && (v > 39.0 || v < 35.0) {
		findings = append(findings, "abnormal_temperature")
	}

	return findings
}

func vitalNumber(vitals map[string]any, key string) (float64, bool) {
	raw, ok := vitals[key]
	if !ok {
		return 0, false
	}
	switch n := raw.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// classifyCondition returns the first condition category whose keywords match
// the intake text, trauma and cardiac checked first.
func classifyCondition(input string) string {
	if input == "" {
		return ""
	}
	lower := strings.ToLower(input)

	for _, category := range []string{"trauma", "cardiac", "respiratory", "neurological", "obstetric", "pediatric"} {
		for _, keyword := range conditionKeywords[category] {
			if strings.Contains(lower, keyword) {
				return category
			}
		}
	}

	return ""
}

func resourcesFor(category string) []string {
	switch category {
	case "trauma":
		return []string{"trauma_team", "emergency_room", "imaging"}
	case "cardiac":
		return []string{"cardiac_monitoring", "emergency_room", "cardiologist"}
	default:
		return []string{"medical_attention"}
	}
}
