package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/caremesh/caremesh/core"
	"github.com/caremesh/caremesh/logging"
)

var phoneRe = regexp.MustCompile(`^\+?1?\d{9,15}$`)

// wardCapacity tracks bed availability for one ward.
type wardCapacity struct {
	beds      int
	available int
	prefix    string
}

// AdmissionOptions configure the admission agent.
type AdmissionOptions struct {
	Logger logging.Logger

	// Extractor recovers patient identity from free intake text. Optional;
	// without it, admissions without structured patient info proceed
	// anonymously.
	Extractor core.PatientExtractor
	// Verifier checks insurance coverage. Optional and always best-effort.
	Verifier core.InsuranceVerifier
	// Registrar registers police cases for accident admissions. Optional.
	Registrar core.CaseRegistrar

	// WardCapacity overrides the default per-ward bed counts, keyed by ward
	// name with [total, available] pairs.
	WardCapacity map[string][2]int
}

// Admission registers patients and allocates beds. Ward capacity counters are
// process-wide state shared by every session and guarded by a mutex; a bed is
// only ever handed out by an atomic check-and-decrement, so concurrent
// admissions cannot drive availability negative.
//
// Like triage, admission never fails a pipeline for internal faults: it
// degrades to an anonymous emergency admission instead.
type Admission struct {
	BaseAgent

	extractor core.PatientExtractor
	verifier  core.InsuranceVerifier
	registrar core.CaseRegistrar

	mu    sync.Mutex
	wards map[string]*wardCapacity
}

// NewAdmission constructs the admission agent with default hospital capacity.
func NewAdmission(optFns ...func(o *AdmissionOptions)) *Admission {
	opts := AdmissionOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	wards := map[string]*wardCapacity{
		"emergency": {beds: 20, available: 15, prefix: "ER"},
		"icu":       {beds: 10, available: 3, prefix: "ICU"},
		"general":   {beds: 50, available: 25, prefix: "GEN"},
		"pediatric": {beds: 15, available: 8, prefix: "PED"},
		"maternity": {beds: 12, available: 6, prefix: "MAT"},
	}
	for name, counts := range opts.WardCapacity {
		if w, ok := wards[name]; ok {
			w.beds, w.available = counts[0], counts[1]
		}
	}

	return &Admission{
		BaseAgent: NewBaseAgent(NameAdmission, opts.Logger),
		extractor: opts.Extractor,
		verifier:  opts.Verifier,
		registrar: opts.Registrar,
		wards:     wards,
	}
}

// Process implements core.Agent.
func (a *Admission) Process(ctx context.Context, wctx *core.WorkflowContext) (result core.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			a.Logger().Error("admission fault session=%s: %v", wctx.SessionID, r)
			result = a.emergencyFallback(fmt.Sprintf("emergency admission due to fault: %v", r))
			err = nil
		}
	}()

	switch wctx.Type {
	case core.WorkflowEmergency, core.WorkflowEmergencyDevice:
		return a.processEmergency(ctx, wctx), nil
	default:
		return a.processRegular(ctx, wctx), nil
	}
}

// processEmergency admits with minimal paperwork: synthetic patient id, bed
// first, identity and insurance caught up later.
func (a *Admission) processEmergency(ctx context.Context, wctx *core.WorkflowContext) core.Result {
	patientID := "EMERGENCY_" + shortHex(8)

	info := a.patientInfo(ctx, wctx)

	level := wctx.Board().EmergencyLevel
	resources := metaStrings(wctx, "required_resources")
	ward, bed := a.allocateEmergencyBed(level, resources)

	legalRegistered := false
	if wctx.MetaBool("legal_case") && a.registrar != nil {
		ok, err := a.registrar.RegisterCase(ctx, patientID, wctx.MetaString("police_case_number"), wctx.MetaMap("accident_details"))
		if err != nil {
			a.Logger().Error("legal case registration failed session=%s: %v", wctx.SessionID, err)
		}
		legalRegistered = ok
	}

	insuranceVerified := a.verifyInsurance(ctx, info)

	condition := wctx.Board().MedicalCondition
	a.Logger().Info("emergency admission session=%s patient=%s ward=%s bed=%s", wctx.SessionID, patientID, ward, bed)

	return core.Result{
		PatientID: patientID,
		Ward:      ward,
		Bed:       bed,
	}.WithField("admission_status", "admitted").
		WithField("admission_type", "emergency").
		WithField("verification_status", map[string]bool{
			"id_verified":           info != nil,
			"insurance_verified":    insuranceVerified,
			"legal_case_registered": legalRegistered,
		}).
		WithField("insurance_verified", insuranceVerified).
		WithField("legal_case_registered", legalRegistered).
		WithField("estimated_stay_duration", estimateStay(condition)).
		WithField("admission_notes", fmt.Sprintf("Patient admitted to %s ward. %s", ward, condition)).
		WithField("next_steps", []string{"immediate_medical_attention", "complete_registration_later"}).
		WithField("admission_confidence", 0.85)
}

// processRegular runs the full verification flow. Missing patient identity
// degrades to an anonymous emergency-style admission rather than aborting.
func (a *Admission) processRegular(ctx context.Context, wctx *core.WorkflowContext) core.Result {
	info := a.patientInfo(ctx, wctx)
	if info == nil {
		a.Logger().Warn("regular admission without patient info session=%s", wctx.SessionID)
		return a.emergencyFallback("admission without verifiable patient identity")
	}

	patientID := generatePatientID(info)
	idVerified := verifyIdentity(info)
	insuranceVerified := a.verifyInsurance(ctx, info)

	condition := wctx.Board().MedicalCondition
	if condition == "" {
		condition = wctx.MetaString("medical_condition")
	}
	ward, bed := a.allocateRegularBed(condition)

	status := "admitted"
	confidence := 0.95
	if !idVerified {
		status = "pending"
		confidence = 0.70
	}

	a.Logger().Info("regular admission session=%s patient=%s ward=%s bed=%s status=%s", wctx.SessionID, patientID, ward, bed, status)

	return core.Result{
		PatientID: patientID,
		Ward:      ward,
		Bed:       bed,
	}.WithField("admission_status", status).
		WithField("admission_type", "regular").
		WithField("verification_status", map[string]bool{
			"id_verified":        idVerified,
			"insurance_verified": insuranceVerified,
		}).
		WithField("insurance_verified", insuranceVerified).
		WithField("legal_case_registered", false).
		WithField("estimated_stay_duration", estimateStay(condition)).
		WithField("admission_notes", fmt.Sprintf("Patient %s admitted to %s ward. %s", info.Name, ward, condition)).
		WithField("next_steps", []string{"complete_registration", "medical_evaluation"}).
		WithField("admission_confidence", confidence)
}

// EmergencyProcess implements core.Agent: immediate critical-path admission.
func (a *Admission) EmergencyProcess(_ context.Context, wctx *core.WorkflowContext, _ map[string]any) (core.Result, error) {
	patientID := wctx.Board().PatientID
	if patientID == "" {
		patientID = "EMERGENCY_" + shortHex(8)
	}
	ward, bed := a.allocateEmergencyBed(core.LevelCritical, nil)

	return core.Result{
		PatientID: patientID,
		Ward:      ward,
		Bed:       bed,
	}.WithField("admission_status", "admitted").
		WithField("admission_type", "emergency").
		WithField("next_steps", []string{"immediate_medical_attention"}).
		WithField("admission_confidence", 0.85), nil
}

// allocateEmergencyBed walks the ICU -> emergency -> general fallback chain.
// When every ward is full the patient still gets an overflow identifier in
// the emergency ward; admission never fails for lack of beds.
func (a *Admission) allocateEmergencyBed(level core.EmergencyLevel, resources []string) (string, string) {
	needsICU := level == core.LevelCritical
	for _, r := range resources {
		if strings.EqualFold(r, "icu") {
			needsICU = true
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if needsICU {
		if bed, ok := a.takeBedLocked("icu"); ok {
			return "icu", bed
		}
	}
	if bed, ok := a.takeBedLocked("emergency"); ok {
		return "emergency", bed
	}
	if bed, ok := a.takeBedLocked("general"); ok {
		return "general", bed
	}

	return "emergency", "ER-OVERFLOW-" + shortHex(4)
}

// allocateRegularBed routes by condition with a general-ward fallback.
func (a *Admission) allocateRegularBed(condition string) (string, string) {
	lower := strings.ToLower(condition)
	ward := "general"
	if strings.Contains(lower, "pediatric") || strings.Contains(lower, "child") {
		ward = "pediatric"
	} else if strings.Contains(lower, "maternity") || strings.Contains(lower, "pregnancy") {
		ward = "maternity"
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if bed, ok := a.takeBedLocked(ward); ok {
		return ward, bed
	}
	if bed, ok := a.takeBedLocked("general"); ok {
		return "general", bed
	}

	return "general", "GEN-WAIT-" + shortHex(4)
}

// takeBedLocked performs the check-and-decrement. Caller holds a.mu.
func (a *Admission) takeBedLocked(ward string) (string, bool) {
	w, ok := a.wards[ward]
	if !ok || w.available <= 0 {
		return "", false
	}
	w.available--
	return fmt.Sprintf("%s-%02d", w.prefix, w.beds-w.available), true
}

// Available returns the current free bed count for a ward.
func (a *Admission) Available(ward string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if w, ok := a.wards[ward]; ok {
		return w.available
	}
	return 0
}

// ReleaseBed returns one bed to a ward, capped at the ward's total.
func (a *Admission) ReleaseBed(ward string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if w, ok := a.wards[ward]; ok && w.available < w.beds {
		w.available++
	}
}

// patientInfo resolves structured identity: the metadata bag first, then the
// extractor over raw intake text. A nil result means "proceed anonymously".
func (a *Admission) patientInfo(ctx context.Context, wctx *core.WorkflowContext) *core.PatientInfo {
	if m := wctx.MetaMap("patient_info"); m != nil {
		if info := decodePatientInfo(m); info != nil {
			return info
		}
	}

	if a.extractor == nil {
		return nil
	}
	input := wctx.MetaString("voice_input")
	if input == "" {
		input = wctx.MetaString("text_input")
	}
	if input == "" {
		return nil
	}

	info, err := a.extractor.ExtractPatientInfo(ctx, input)
	if err != nil {
		a.Logger().Error("patient info extraction failed session=%s: %v", wctx.SessionID, err)
		return nil
	}

	return info
}

func (a *Admission) verifyInsurance(ctx context.Context, info *core.PatientInfo) bool {
	if a.verifier == nil || info == nil || info.InsuranceProvider == "" {
		return false
	}
	ok, err := a.verifier.Verify(ctx, info.InsuranceProvider, info.InsuranceNumber)
	if err != nil {
		a.Logger().Error("insurance verification failed provider=%s: %v", info.InsuranceProvider, err)
		return false
	}
	return ok
}

func (a *Admission) emergencyFallback(notes string) core.Result {
	ward, bed := a.allocateEmergencyBed(core.LevelCritical, nil)
	return core.Result{
		PatientID: "EMERGENCY_" + shortHex(8),
		Ward:      ward,
		Bed:       bed,
	}.WithField("admission_status", "admitted").
		WithField("admission_type", "emergency").
		WithField("verification_status", map[string]bool{"id_verified": false, "insurance_verified": false}).
		WithField("insurance_verified", false).
		WithField("legal_case_registered", false).
		WithField("estimated_stay_duration", "24-48 hours").
		WithField("admission_notes", notes).
		WithField("next_steps", []string{"immediate_medical_attention", "complete_registration_later"}).
		WithField("admission_confidence", 0.0)
}

// generatePatientID builds a stable-looking identifier from name and date of
// birth plus a random suffix for uniqueness.
func generatePatientID(info *core.PatientInfo) string {
	namePart := strings.ToUpper(strings.ReplaceAll(info.Name, " ", ""))
	if len(namePart) > 4 {
		namePart = namePart[:4]
	}
	dobPart := strings.ReplaceAll(info.DateOfBirth, "-", "")
	if len(dobPart) > 4 {
		dobPart = dobPart[len(dobPart)-4:]
	}
	return namePart + dobPart + shortHex(4)
}

// verifyIdentity applies basic plausibility checks standing in for a
// government registry lookup.
func verifyIdentity(info *core.PatientInfo) bool {
	if len(strings.TrimSpace(info.Name)) < 2 {
		return false
	}
	if info.DateOfBirth == "" {
		return false
	}
	phone := strings.NewReplacer("-", "", " ", "", "(", "", ")", "", ".", "").Replace(info.ContactNumber)
	return phoneRe.MatchString(phone)
}

func estimateStay(condition string) string {
	lower := strings.ToLower(condition)
	switch {
	case strings.Contains(lower, "trauma"), strings.Contains(lower, "surgery"), strings.Contains(lower, "accident"):
		return "3-7 days"
	case strings.Contains(lower, "infection"), strings.Contains(lower, "pneumonia"):
		return "5-10 days"
	case strings.Contains(lower, "checkup"), strings.Contains(lower, "routine"):
		return "1-2 days"
	default:
		return "2-5 days"
	}
}

// decodePatientInfo converts an untyped metadata map into a PatientInfo via a
// JSON round trip, tolerating partially populated maps.
func decodePatientInfo(m map[string]any) *core.PatientInfo {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	var info core.PatientInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil
	}
	if info.Name == "" && info.ContactNumber == "" && info.InsuranceProvider == "" {
		return nil
	}
	return &info
}

// metaStrings reads a metadata key holding a string slice in either typed or
// JSON-decoded ([]any) shape.
func metaStrings(wctx *core.WorkflowContext, key string) []string {
	v, ok := wctx.Meta(key)
	if !ok {
		return nil
	}
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}
