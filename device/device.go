package device

import (
	"errors"
	"time"

	"github.com/caremesh/caremesh/notify"
)

var (
	// ErrDeviceNotFound is returned for operations addressing a device id
	// absent from the registry.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrAccessDenied is returned when a doctor fails the access boundary
	// check for a device scan.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidDevice is returned when registering a device without the
	// required identifiers.
	ErrInvalidDevice = errors.New("device requires device id and patient id")
)

// Device is the registry entry for one smart health device. A device always
// belongs to exactly one patient. Thresholds and contacts may be empty, in
// which case emergency evaluation degrades to "never emergency" and
// notification is a no-op.
type Device struct {
	DeviceID        string           `json:"device_id"`
	PatientID       string           `json:"patient_id"`
	DeviceType      string           `json:"device_type"`
	DeviceModel     string           `json:"device_model"`
	FirmwareVersion string           `json:"firmware_version"`
	LastSync        time.Time        `json:"last_sync"`
	BatteryLevel    int              `json:"battery_level"`
	Connected       bool             `json:"is_connected"`
	Contacts        []notify.Contact `json:"emergency_contacts,omitempty"`
	Reports         []Report         `json:"medical_reports,omitempty"`

	// Vitals maps metric name to current value; merged (not versioned) on
	// each update. Blood pressure travels as a "systolic/diastolic" string.
	Vitals map[string]any `json:"vital_signs,omitempty"`

	// Thresholds maps "<metric>_min"/"<metric>_max" bound names to numeric
	// limits (blood pressure bounds are "systolic/diastolic" strings).
	// Static after registration; callers may replace the map wholesale.
	Thresholds map[string]any `json:"emergency_thresholds,omitempty"`
}

// Report is an opaque medical record stored on a device. Append-only from the
// registry's perspective.
type Report struct {
	ReportID    string         `json:"report_id"`
	ReportType  string         `json:"report_type"`
	ReportDate  time.Time      `json:"report_date"`
	DoctorID    string         `json:"doctor_id"`
	HospitalID  string         `json:"hospital_id"`
	Data        map[string]any `json:"report_data,omitempty"`
	AccessLevel string         `json:"access_level,omitempty"`
}

// Alert is the immutable record of one detected emergency. Appended to the
// registry's alert log and never mutated after creation.
type Alert struct {
	AlertID    string    `json:"alert_id"`
	DeviceID   string    `json:"device_id"`
	PatientID  string    `json:"patient_id"`
	Conditions []string  `json:"conditions"`
	Timestamp  time.Time `json:"timestamp"`
	Status     string    `json:"status"`
}

// ScanType selects the data view returned by a device scan.
type ScanType string

const (
	// ScanMedicalHistory returns stored reports plus current vitals.
	ScanMedicalHistory ScanType = "medical_history"
	// ScanEmergencyContacts returns the registered emergency contacts.
	ScanEmergencyContacts ScanType = "emergency_contact"
	// ScanDeviceInfo returns hardware/battery/sync details only.
	ScanDeviceInfo ScanType = "device_info"
)

// ScanRequest is a doctor's request to read a device.
type ScanRequest struct {
	DoctorID string   `json:"doctor_id"`
	DeviceID string   `json:"device_id"`
	Type     ScanType `json:"scan_type"`
}

// ScanResult is the scoped view returned for a successful scan.
type ScanResult struct {
	ScanID    string           `json:"scan_id"`
	PatientID string           `json:"patient_id,omitempty"`
	Reports   []Report         `json:"medical_reports,omitempty"`
	Vitals    map[string]any   `json:"vital_signs,omitempty"`
	Contacts  []notify.Contact `json:"emergency_contacts,omitempty"`
	Info      *DeviceInfo      `json:"device_info,omitempty"`
	ScanTime  time.Time        `json:"scan_time"`
}

// DeviceInfo is the hardware-only scan view.
type DeviceInfo struct {
	DeviceType      string    `json:"device_type"`
	DeviceModel     string    `json:"device_model"`
	FirmwareVersion string    `json:"firmware_version"`
	BatteryLevel    int       `json:"battery_level"`
	LastSync        time.Time `json:"last_sync"`
}

// AccessPolicy is the boundary check applied before a doctor may scan a
// device. Authorization semantics beyond this check are out of scope.
type AccessPolicy interface {
	Allow(doctorID, patientID string) bool
}

// AllowAllPolicy grants every scan request. Default for development setups.
type AllowAllPolicy struct{}

// Allow implements AccessPolicy.
func (AllowAllPolicy) Allow(string, string) bool { return true }
