package core

// BlackboardVersion identifies the promoted-field schema carried by every
// WorkflowContext. Bump it whenever a field is added to Blackboard so that
// audit consumers can interpret archived contexts.
const BlackboardVersion = 1

// Blackboard is the typed, versioned projection of the fields the pipeline is
// allowed to promote out of agent results. Agents still exchange open-ended
// data through Context metadata, but anything the engine itself reasons about
// lives here as a first-class field rather than a stringly-typed map key.
type Blackboard struct {
	Version          int            `json:"version"`
	EmergencyLevel   EmergencyLevel `json:"emergency_level,omitempty"`
	MedicalCondition string         `json:"medical_condition,omitempty"`
	PriorityScore    int            `json:"priority_score,omitempty"`
	PatientID        string         `json:"patient_id,omitempty"`
	Ward             string         `json:"ward,omitempty"`
	Bed              string         `json:"bed,omitempty"`
	LegalCase        *bool          `json:"legal_case,omitempty"`
}

// merge copies every set field of the result onto the blackboard. Zero values
// are treated as "not produced by this agent" and leave the existing value
// untouched; LegalCase uses a pointer so false can still be asserted.
func (b *Blackboard) merge(r Result) {
	if r.EmergencyLevel != "" {
		b.EmergencyLevel = r.EmergencyLevel
	}
	if r.MedicalCondition != "" {
		b.MedicalCondition = r.MedicalCondition
	}
	if r.PriorityScore != 0 {
		b.PriorityScore = r.PriorityScore
	}
	if r.PatientID != "" {
		b.PatientID = r.PatientID
	}
	if r.Ward != "" {
		b.Ward = r.Ward
	}
	if r.Bed != "" {
		b.Bed = r.Bed
	}
	if r.LegalCase != nil {
		v := *r.LegalCase
		b.LegalCase = &v
	}
}

// Result is the partial outcome returned by a single agent step. The typed
// fields are the only ones the engine promotes onto the Blackboard; everything
// else travels in Fields and is merged into Context metadata last-write-wins.
type Result struct {
	EmergencyLevel   EmergencyLevel
	MedicalCondition string
	PriorityScore    int
	PatientID        string
	Ward             string
	Bed              string
	LegalCase        *bool

	// Fields is the residual open bag for experimental or agent-private
	// outputs that downstream agents may read but the engine never interprets.
	Fields map[string]any
}

// WithField returns the result with the key/value pair added to Fields,
// allocating the map on first use. Convenient for building results inline.
func (r Result) WithField(key string, value any) Result {
	if r.Fields == nil {
		r.Fields = map[string]any{}
	}
	r.Fields[key] = value
	return r
}

// BoolPtr returns a pointer to b. Helper for Result.LegalCase.
func BoolPtr(b bool) *bool { return &b }
