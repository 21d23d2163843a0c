package core

// WorkflowType selects the ordered agent pipeline executed for an encounter.
type WorkflowType string

const (
	// WorkflowEmergency runs triage first so every downstream agent can act
	// on the urgency classification.
	WorkflowEmergency WorkflowType = "emergency"
	// WorkflowRegular runs admission/intake first; urgency is not yet known
	// for scheduled encounters.
	WorkflowRegular WorkflowType = "regular"
	// WorkflowDeviceScan covers a doctor reading a patient's smart device.
	WorkflowDeviceScan WorkflowType = "device_scan"
	// WorkflowEmergencyDevice covers a device-originated emergency, where the
	// device subsystem has already detected a threshold breach.
	WorkflowEmergencyDevice WorkflowType = "emergency_device"
)

// EmergencyLevel is the triage urgency classification.
type EmergencyLevel string

const (
	// LevelCritical marks immediately life-threatening conditions (priority 1).
	LevelCritical EmergencyLevel = "critical"
	// LevelUrgent marks serious but not immediately life-threatening
	// conditions (priority 2-3).
	LevelUrgent EmergencyLevel = "urgent"
	// LevelNonUrgent marks conditions that can wait for treatment
	// (priority 4-5).
	LevelNonUrgent EmergencyLevel = "non-urgent"
)
